package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/hongminglow/smartdash-be/internal/models"
	"github.com/hongminglow/smartdash-be/internal/storage"
	"github.com/jackc/pgx/v5"
)

const dataColumns = `id, user_id, label, value, category, date, created_at`

// CreateDataPoint inserts a data point.
func (s *Store) CreateDataPoint(ctx context.Context, point models.DataPoint) (models.DataPoint, error) {
	query := `
		INSERT INTO data_points (id, user_id, label, value, category, date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + dataColumns
	row := s.pool.QueryRow(ctx, query, point.ID, point.UserID, point.Label, point.Value, point.Category, point.Date, point.CreatedAt)
	created, err := scanDataPoint(row)
	if err != nil {
		return models.DataPoint{}, fmt.Errorf("insert data point: %w", err)
	}
	return created, nil
}

// FindDataPoint fetches a data point by id.
func (s *Store) FindDataPoint(ctx context.Context, id string) (models.DataPoint, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+dataColumns+` FROM data_points WHERE id = $1`, id)
	return scanDataPoint(row)
}

// ListDataPoints returns a user's points, optionally filtered, sorted by date.
func (s *Store) ListDataPoints(ctx context.Context, userID string, filter storage.DataFilter, asc bool) ([]models.DataPoint, error) {
	clauses := []string{"user_id = $1"}
	args := []any{userID}
	if filter.Category != "" {
		args = append(args, filter.Category)
		clauses = append(clauses, fmt.Sprintf("category = $%d", len(args)))
	}
	if !filter.From.IsZero() {
		args = append(args, filter.From)
		clauses = append(clauses, fmt.Sprintf("date >= $%d", len(args)))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To)
		clauses = append(clauses, fmt.Sprintf("date <= $%d", len(args)))
	}
	order := "DESC"
	if asc {
		order = "ASC"
	}
	query := `SELECT ` + dataColumns + ` FROM data_points WHERE ` + strings.Join(clauses, " AND ") +
		` ORDER BY date ` + order + `, created_at ` + order

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list data points: %w", err)
	}
	points, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.DataPoint, error) {
		return scanDataPoint(row)
	})
	if err != nil {
		return nil, fmt.Errorf("scan data points: %w", err)
	}
	return points, nil
}

// UpdateDataPoint persists label, value and category of an existing point.
func (s *Store) UpdateDataPoint(ctx context.Context, point models.DataPoint) (models.DataPoint, error) {
	query := `
		UPDATE data_points SET label = $2, value = $3, category = $4
		WHERE id = $1
		RETURNING ` + dataColumns
	row := s.pool.QueryRow(ctx, query, point.ID, point.Label, point.Value, point.Category)
	return scanDataPoint(row)
}

// DeleteDataPoint removes a data point.
func (s *Store) DeleteDataPoint(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM data_points WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete data point: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Categories returns the distinct categories of a user's points.
func (s *Store) Categories(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT DISTINCT category FROM data_points WHERE user_id = $1 ORDER BY category`, userID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	categories, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan categories: %w", err)
	}
	return categories, nil
}

// CountDataPoints counts every stored point across users.
func (s *Store) CountDataPoints(ctx context.Context) (int64, error) {
	var count int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM data_points`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count data points: %w", err)
	}
	return count, nil
}

func scanDataPoint(row pgx.Row) (models.DataPoint, error) {
	var p models.DataPoint
	if err := row.Scan(&p.ID, &p.UserID, &p.Label, &p.Value, &p.Category, &p.Date, &p.CreatedAt); err != nil {
		return models.DataPoint{}, notFound(err)
	}
	return p, nil
}
