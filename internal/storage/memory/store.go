// Package memory is an in-process implementation of storage.Store used by
// tests and local experiments.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/hongminglow/smartdash-be/internal/models"
	"github.com/hongminglow/smartdash-be/internal/storage"
)

var _ storage.Store = (*Store)(nil)

// Store keeps every collection in maps guarded by one mutex.
type Store struct {
	mu            sync.RWMutex
	users         map[string]models.User
	points        map[string]models.DataPoint
	alerts        map[string]models.Alert
	notifications map[string]models.Notification
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		users:         make(map[string]models.User),
		points:        make(map[string]models.DataPoint),
		alerts:        make(map[string]models.Alert),
		notifications: make(map[string]models.Notification),
	}
}

func (s *Store) CreateUser(_ context.Context, user models.User) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == user.Email {
			return models.User{}, &storage.ConflictError{Field: "email"}
		}
		if u.Username == user.Username {
			return models.User{}, &storage.ConflictError{Field: "username"}
		}
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	s.users[user.ID] = user
	return user, nil
}

func (s *Store) FindUserByID(_ context.Context, id string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return models.User{}, storage.ErrNotFound
	}
	return u, nil
}

func (s *Store) FindUserByEmail(_ context.Context, email string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return models.User{}, storage.ErrNotFound
}

func (s *Store) FindUserByResetToken(_ context.Context, tokenHash string, now time.Time) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.ResetPasswordToken != "" && u.ResetPasswordToken == tokenHash &&
			u.ResetPasswordExpire != nil && u.ResetPasswordExpire.After(now) {
			return u, nil
		}
	}
	return models.User{}, storage.ErrNotFound
}

func (s *Store) UpdateProfile(_ context.Context, id string, avatar, theme *string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return models.User{}, storage.ErrNotFound
	}
	if avatar != nil {
		u.Avatar = *avatar
	}
	if theme != nil {
		u.Theme = *theme
	}
	s.users[id] = u
	return u, nil
}

func (s *Store) UpdatePassword(_ context.Context, id, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return storage.ErrNotFound
	}
	u.PasswordHash = passwordHash
	u.ResetPasswordToken = ""
	u.ResetPasswordExpire = nil
	s.users[id] = u
	return nil
}

func (s *Store) SetResetToken(_ context.Context, id, tokenHash string, expires time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return storage.ErrNotFound
	}
	u.ResetPasswordToken = tokenHash
	u.ResetPasswordExpire = &expires
	s.users[id] = u
	return nil
}

func (s *Store) CreateDataPoint(_ context.Context, p models.DataPoint) (models.DataPoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.points[p.ID] = p
	return p, nil
}

func (s *Store) FindDataPoint(_ context.Context, id string) (models.DataPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.points[id]
	if !ok {
		return models.DataPoint{}, storage.ErrNotFound
	}
	return p, nil
}

func (s *Store) ListDataPoints(_ context.Context, userID string, f storage.DataFilter, asc bool) ([]models.DataPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.DataPoint{}
	for _, p := range s.points {
		if p.UserID != userID {
			continue
		}
		if f.Category != "" && p.Category != f.Category {
			continue
		}
		if !f.From.IsZero() && p.Date.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && p.Date.After(f.To) {
			continue
		}
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			if asc {
				return out[i].Date.Before(out[j].Date)
			}
			return out[i].Date.After(out[j].Date)
		}
		if asc {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) UpdateDataPoint(_ context.Context, p models.DataPoint) (models.DataPoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.points[p.ID]; !ok {
		return models.DataPoint{}, storage.ErrNotFound
	}
	s.points[p.ID] = p
	return p, nil
}

func (s *Store) DeleteDataPoint(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.points[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.points, id)
	return nil
}

func (s *Store) Categories(_ context.Context, userID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := map[string]struct{}{}
	out := []string{}
	for _, p := range s.points {
		if p.UserID != userID {
			continue
		}
		if _, ok := seen[p.Category]; ok {
			continue
		}
		seen[p.Category] = struct{}{}
		out = append(out, p.Category)
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) CountDataPoints(context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.points)), nil
}

func (s *Store) CreateAlert(_ context.Context, a models.Alert) (models.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts[a.ID] = a
	return a, nil
}

func (s *Store) FindAlert(_ context.Context, id string) (models.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.alerts[id]
	if !ok {
		return models.Alert{}, storage.ErrNotFound
	}
	return a, nil
}

func (s *Store) ListAlerts(_ context.Context, userID string) ([]models.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.Alert{}
	for _, a := range s.alerts {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) ActiveAlerts(_ context.Context, userID, category string) ([]models.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Alert
	for _, a := range s.alerts {
		if a.UserID == userID && a.Category == category && a.Active {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *Store) DeleteAlert(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.alerts[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.alerts, id)
	return nil
}

func (s *Store) CreateNotification(_ context.Context, n models.Notification) (models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications[n.ID] = n
	return n, nil
}

func (s *Store) FindNotification(_ context.Context, id string) (models.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.notifications[id]
	if !ok {
		return models.Notification{}, storage.ErrNotFound
	}
	return n, nil
}

func (s *Store) LatestNotifications(_ context.Context, userID string, limit int) ([]models.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.Notification{}
	for _, n := range s.notifications {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) MarkNotificationRead(_ context.Context, id string) (models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notifications[id]
	if !ok {
		return models.Notification{}, storage.ErrNotFound
	}
	n.Read = true
	s.notifications[id] = n
	return n, nil
}
