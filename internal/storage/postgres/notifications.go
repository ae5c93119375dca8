package postgres

import (
	"context"
	"fmt"

	"github.com/hongminglow/smartdash-be/internal/models"
	"github.com/jackc/pgx/v5"
)

const notificationColumns = `id, user_id, message, COALESCE(related_alert, ''), read, date`

// CreateNotification inserts a notification.
func (s *Store) CreateNotification(ctx context.Context, n models.Notification) (models.Notification, error) {
	var related *string
	if n.RelatedAlert != "" {
		related = &n.RelatedAlert
	}
	query := `
		INSERT INTO notifications (id, user_id, message, related_alert, read, date)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + notificationColumns
	row := s.pool.QueryRow(ctx, query, n.ID, n.UserID, n.Message, related, n.Read, n.Date)
	created, err := scanNotification(row)
	if err != nil {
		return models.Notification{}, fmt.Errorf("insert notification: %w", err)
	}
	return created, nil
}

// FindNotification fetches a notification by id.
func (s *Store) FindNotification(ctx context.Context, id string) (models.Notification, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+notificationColumns+` FROM notifications WHERE id = $1`, id)
	return scanNotification(row)
}

// LatestNotifications returns a user's newest notifications.
func (s *Store) LatestNotifications(ctx context.Context, userID string, limit int) ([]models.Notification, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+notificationColumns+` FROM notifications
		WHERE user_id = $1 ORDER BY date DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Notification, error) {
		return scanNotification(row)
	})
	if err != nil {
		return nil, fmt.Errorf("scan notifications: %w", err)
	}
	return out, nil
}

// MarkNotificationRead flags a notification as read.
func (s *Store) MarkNotificationRead(ctx context.Context, id string) (models.Notification, error) {
	row := s.pool.QueryRow(ctx, `UPDATE notifications SET read = TRUE WHERE id = $1 RETURNING `+notificationColumns, id)
	return scanNotification(row)
}

func scanNotification(row pgx.Row) (models.Notification, error) {
	var n models.Notification
	if err := row.Scan(&n.ID, &n.UserID, &n.Message, &n.RelatedAlert, &n.Read, &n.Date); err != nil {
		return models.Notification{}, notFound(err)
	}
	return n, nil
}
