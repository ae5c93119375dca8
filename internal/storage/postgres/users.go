package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hongminglow/smartdash-be/internal/models"
	"github.com/hongminglow/smartdash-be/internal/storage"
	"github.com/jackc/pgx/v5"
)

const userColumns = `id, username, email, password_hash, avatar, theme, notify_by_email,
	COALESCE(reset_password_token, ''), reset_password_expire, created_at`

// CreateUser inserts a new user row.
func (s *Store) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	query := `
		INSERT INTO users (id, username, email, password_hash, avatar, theme, notify_by_email)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + userColumns
	row := s.pool.QueryRow(ctx, query, user.ID, user.Username, user.Email, user.PasswordHash, user.Avatar, user.Theme, user.NotifyByEmail)
	created, err := scanUser(row)
	if err != nil {
		if pgErr, ok := uniqueViolation(err); ok {
			field := "username"
			if strings.Contains(pgErr.ConstraintName, "email") {
				field = "email"
			}
			return models.User{}, &storage.ConflictError{Field: field}
		}
		return models.User{}, fmt.Errorf("insert user: %w", err)
	}
	return created, nil
}

// FindUserByID fetches a user by primary key.
func (s *Store) FindUserByID(ctx context.Context, id string) (models.User, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// FindUserByEmail fetches a user by email address.
func (s *Store) FindUserByEmail(ctx context.Context, email string) (models.User, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return scanUser(row)
}

// FindUserByResetToken fetches the user holding an unexpired reset token hash.
func (s *Store) FindUserByResetToken(ctx context.Context, tokenHash string, now time.Time) (models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users
		WHERE reset_password_token = $1 AND reset_password_expire > $2`
	row := s.pool.QueryRow(ctx, query, tokenHash, now)
	return scanUser(row)
}

// UpdateProfile sets avatar and/or theme; nil arguments keep the stored value.
func (s *Store) UpdateProfile(ctx context.Context, id string, avatar, theme *string) (models.User, error) {
	query := `
		UPDATE users SET avatar = COALESCE($2, avatar), theme = COALESCE($3, theme)
		WHERE id = $1
		RETURNING ` + userColumns
	row := s.pool.QueryRow(ctx, query, id, avatar, theme)
	return scanUser(row)
}

// UpdatePassword replaces the password hash and clears any pending reset token.
func (s *Store) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE users SET password_hash = $2, reset_password_token = NULL, reset_password_expire = NULL
		WHERE id = $1`, id, passwordHash)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// SetResetToken stores a reset token hash, replacing any previous one.
func (s *Store) SetResetToken(ctx context.Context, id, tokenHash string, expires time.Time) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE users SET reset_password_token = $2, reset_password_expire = $3
		WHERE id = $1`, id, tokenHash, expires)
	if err != nil {
		return fmt.Errorf("set reset token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (models.User, error) {
	var user models.User
	if err := row.Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.Avatar, &user.Theme,
		&user.NotifyByEmail, &user.ResetPasswordToken, &user.ResetPasswordExpire, &user.CreatedAt); err != nil {
		return models.User{}, notFound(err)
	}
	return user, nil
}
