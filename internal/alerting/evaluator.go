// Package alerting turns newly ingested values into notifications for the
// alerts they cross.
package alerting

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/hongminglow/smartdash-be/internal/metrics"
	"github.com/hongminglow/smartdash-be/internal/models"
)

// AlertSource lists the active alerts of a user for a category.
type AlertSource interface {
	ActiveAlerts(ctx context.Context, userID, category string) ([]models.Alert, error)
}

// NotificationSink persists notifications.
type NotificationSink interface {
	CreateNotification(ctx context.Context, n models.Notification) (models.Notification, error)
}

// Evaluator checks a new value against the owner's alerts.
//
// Every triggered alert produces a notification on every evaluation; there is
// no deduplication or suppression window.
type Evaluator struct {
	alerts        AlertSource
	notifications NotificationSink
	logger        *slog.Logger
	metrics       *metrics.Metrics
	now           func() time.Time
}

// NewEvaluator wires an evaluator. logger and m may be nil.
func NewEvaluator(alerts AlertSource, notifications NotificationSink, logger *slog.Logger, m *metrics.Metrics) *Evaluator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Evaluator{alerts: alerts, notifications: notifications, logger: logger, metrics: m, now: time.Now}
}

// Evaluate creates one notification per active alert that value crosses.
// The first store failure stops the pass and is returned; notifications
// created before it are kept.
func (e *Evaluator) Evaluate(ctx context.Context, userID, category string, value float64) ([]models.Notification, error) {
	alerts, err := e.alerts.ActiveAlerts(ctx, userID, category)
	if err != nil {
		return nil, fmt.Errorf("load alerts: %w", err)
	}

	var created []models.Notification
	for _, alert := range alerts {
		if !alert.Triggered(value) {
			continue
		}
		n, err := e.notifications.CreateNotification(ctx, models.Notification{
			ID:           uuid.NewString(),
			UserID:       userID,
			Message:      Message(category, alert, value),
			RelatedAlert: alert.ID,
			Date:         e.now().UTC(),
		})
		if err != nil {
			return created, fmt.Errorf("create notification for alert %s: %w", alert.ID, err)
		}
		created = append(created, n)
		if e.metrics != nil {
			e.metrics.NotificationsSent.Inc()
		}
		e.logger.InfoContext(ctx, "alert triggered", "user_id", userID, "alert_id", alert.ID, "category", category, "value", value)
	}
	return created, nil
}

// Message renders the notification text, e.g.
// "🚨 Alert: Revenue is below 1500 (Value: 1200)".
func Message(category string, alert models.Alert, value float64) string {
	return fmt.Sprintf("🚨 Alert: %s is %s %s (Value: %s)",
		category, alert.Condition.Direction(), formatNumber(alert.Threshold), formatNumber(value))
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
