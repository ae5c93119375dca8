package storage

import (
	"context"
	"errors"
	"time"

	"github.com/hongminglow/smartdash-be/internal/models"
)

// ErrNotFound indicates a record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrAlreadyExists indicates a uniqueness conflict.
var ErrAlreadyExists = errors.New("record already exists")

// ErrForbidden indicates the record exists but belongs to someone else.
var ErrForbidden = errors.New("not authorized")

// ConflictError names the unique field that collided.
type ConflictError struct {
	Field string
}

func (e *ConflictError) Error() string { return e.Field + " already exists" }

// Is lets errors.Is(err, ErrAlreadyExists) match conflicts.
func (e *ConflictError) Is(target error) bool { return target == ErrAlreadyExists }

// UserStore captures persistence operations needed by auth handlers.
type UserStore interface {
	CreateUser(ctx context.Context, user models.User) (models.User, error)
	FindUserByID(ctx context.Context, id string) (models.User, error)
	FindUserByEmail(ctx context.Context, email string) (models.User, error)
	FindUserByResetToken(ctx context.Context, tokenHash string, now time.Time) (models.User, error)
	UpdateProfile(ctx context.Context, id string, avatar, theme *string) (models.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	SetResetToken(ctx context.Context, id, tokenHash string, expires time.Time) error
}

// DataFilter narrows data point queries. Zero values mean "no filter".
type DataFilter struct {
	Category string
	From     time.Time
	To       time.Time
}

// DataStore persists data points.
type DataStore interface {
	CreateDataPoint(ctx context.Context, point models.DataPoint) (models.DataPoint, error)
	FindDataPoint(ctx context.Context, id string) (models.DataPoint, error)
	// ListDataPoints returns the user's points sorted by date; ascending when asc is true.
	ListDataPoints(ctx context.Context, userID string, filter DataFilter, asc bool) ([]models.DataPoint, error)
	UpdateDataPoint(ctx context.Context, point models.DataPoint) (models.DataPoint, error)
	DeleteDataPoint(ctx context.Context, id string) error
	Categories(ctx context.Context, userID string) ([]string, error)
	CountDataPoints(ctx context.Context) (int64, error)
}

// AlertStore persists alert rules.
type AlertStore interface {
	CreateAlert(ctx context.Context, alert models.Alert) (models.Alert, error)
	FindAlert(ctx context.Context, id string) (models.Alert, error)
	ListAlerts(ctx context.Context, userID string) ([]models.Alert, error)
	// ActiveAlerts returns the user's active alerts for one category.
	ActiveAlerts(ctx context.Context, userID, category string) ([]models.Alert, error)
	DeleteAlert(ctx context.Context, id string) error
}

// NotificationStore persists notifications.
type NotificationStore interface {
	CreateNotification(ctx context.Context, n models.Notification) (models.Notification, error)
	FindNotification(ctx context.Context, id string) (models.Notification, error)
	// LatestNotifications returns at most limit notifications, newest first.
	LatestNotifications(ctx context.Context, userID string, limit int) ([]models.Notification, error)
	MarkNotificationRead(ctx context.Context, id string) (models.Notification, error)
}

// Store bundles every collection the API needs.
type Store interface {
	UserStore
	DataStore
	AlertStore
	NotificationStore
}
