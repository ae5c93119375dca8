package models

import "time"

// User captures application-facing fields for an authenticated identity.
type User struct {
	ID                  string     `json:"_id"`
	Username            string     `json:"username"`
	Email               string     `json:"email"`
	PasswordHash        string     `json:"-"`
	Avatar              string     `json:"avatar"`
	Theme               string     `json:"theme"`
	NotifyByEmail       bool       `json:"notifyByEmail"`
	ResetPasswordToken  string     `json:"-"`
	ResetPasswordExpire *time.Time `json:"-"`
	CreatedAt           time.Time  `json:"createdAt"`
}

// DefaultTheme is applied to new accounts.
const DefaultTheme = "light"

// SessionUser is the profile snapshot kept in a session and returned by /auth/me.
type SessionUser struct {
	ID        string    `json:"_id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Avatar    string    `json:"avatar"`
	Theme     string    `json:"theme"`
	CreatedAt time.Time `json:"createdAt"`
}

// Snapshot returns the session-safe view of the user.
func (u User) Snapshot() SessionUser {
	return SessionUser{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Avatar:    u.Avatar,
		Theme:     u.Theme,
		CreatedAt: u.CreatedAt,
	}
}
