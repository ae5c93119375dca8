package postgres

import (
	"context"
	"fmt"

	"github.com/hongminglow/smartdash-be/internal/models"
	"github.com/hongminglow/smartdash-be/internal/storage"
	"github.com/jackc/pgx/v5"
)

const alertColumns = `id, user_id, category, condition, threshold, active, created_at`

// CreateAlert inserts an alert rule.
func (s *Store) CreateAlert(ctx context.Context, alert models.Alert) (models.Alert, error) {
	query := `
		INSERT INTO alerts (id, user_id, category, condition, threshold, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + alertColumns
	row := s.pool.QueryRow(ctx, query, alert.ID, alert.UserID, alert.Category, string(alert.Condition), alert.Threshold, alert.Active, alert.CreatedAt)
	created, err := scanAlert(row)
	if err != nil {
		return models.Alert{}, fmt.Errorf("insert alert: %w", err)
	}
	return created, nil
}

// FindAlert fetches an alert by id.
func (s *Store) FindAlert(ctx context.Context, id string) (models.Alert, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+alertColumns+` FROM alerts WHERE id = $1`, id)
	return scanAlert(row)
}

// ListAlerts returns every alert a user owns.
func (s *Store) ListAlerts(ctx context.Context, userID string) ([]models.Alert, error) {
	return s.queryAlerts(ctx, `SELECT `+alertColumns+` FROM alerts WHERE user_id = $1 ORDER BY created_at`, userID)
}

// ActiveAlerts returns a user's active alerts for a category.
func (s *Store) ActiveAlerts(ctx context.Context, userID, category string) ([]models.Alert, error) {
	return s.queryAlerts(ctx, `SELECT `+alertColumns+` FROM alerts
		WHERE user_id = $1 AND category = $2 AND active`, userID, category)
}

// DeleteAlert removes an alert. Notifications referencing it are kept.
func (s *Store) DeleteAlert(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM alerts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete alert: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) queryAlerts(ctx context.Context, query string, args ...any) ([]models.Alert, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query alerts: %w", err)
	}
	alerts, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Alert, error) {
		return scanAlert(row)
	})
	if err != nil {
		return nil, fmt.Errorf("scan alerts: %w", err)
	}
	return alerts, nil
}

func scanAlert(row pgx.Row) (models.Alert, error) {
	var a models.Alert
	var condition string
	if err := row.Scan(&a.ID, &a.UserID, &a.Category, &condition, &a.Threshold, &a.Active, &a.CreatedAt); err != nil {
		return models.Alert{}, notFound(err)
	}
	a.Condition = models.Condition(condition)
	return a, nil
}
