package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/hongminglow/smartdash-be/internal/auth"
	"github.com/hongminglow/smartdash-be/internal/http/respond"
	"github.com/hongminglow/smartdash-be/internal/models"
	"github.com/hongminglow/smartdash-be/internal/session"
)

// CookieName is the session cookie set on login.
const CookieName = "smartdash.sid"

type sessionKey struct{}

// Sessions issues, resolves and destroys cookie-referenced sessions.
type Sessions struct {
	store  session.Store
	tokens *auth.TokenManager
	ttl    time.Duration
	secure bool
	logger *slog.Logger
}

// NewSessions builds the session manager. Production mode marks cookies
// Secure with SameSite=None so a separately hosted frontend can send them.
func NewSessions(store session.Store, tokens *auth.TokenManager, ttl time.Duration, production bool, logger *slog.Logger) *Sessions {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sessions{store: store, tokens: tokens, ttl: ttl, secure: production, logger: logger}
}

// Issue starts a session for user and sets the cookie.
func (s *Sessions) Issue(w http.ResponseWriter, r *http.Request, user models.SessionUser) (session.Session, error) {
	sess := session.New(user, s.ttl)
	if err := s.store.Save(r.Context(), sess); err != nil {
		return session.Session{}, err
	}
	token, err := s.tokens.Generate(sess.ID, sess.ExpiresAt)
	if err != nil {
		return session.Session{}, err
	}
	http.SetCookie(w, s.cookie(token, sess.ExpiresAt, int(s.ttl.Seconds())))
	return sess, nil
}

// Refresh replaces the user snapshot held by the current session.
func (s *Sessions) Refresh(ctx context.Context, user models.SessionUser) error {
	sess, ok := FromContext(ctx)
	if !ok {
		return session.ErrNotFound
	}
	sess.User = user
	return s.store.Save(ctx, sess)
}

// Destroy deletes the current session, if any, and clears the cookie.
func (s *Sessions) Destroy(w http.ResponseWriter, r *http.Request) error {
	var err error
	if sess, ok := s.Lookup(r); ok {
		err = s.store.Delete(r.Context(), sess.ID)
	}
	http.SetCookie(w, s.cookie("", time.Unix(0, 0), -1))
	return err
}

// Lookup resolves the session referenced by the request cookie.
func (s *Sessions) Lookup(r *http.Request) (session.Session, bool) {
	c, err := r.Cookie(CookieName)
	if err != nil || c.Value == "" {
		return session.Session{}, false
	}
	id, err := s.tokens.Parse(c.Value)
	if err != nil {
		return session.Session{}, false
	}
	sess, err := s.store.Get(r.Context(), id)
	if err != nil {
		if !errors.Is(err, session.ErrNotFound) {
			s.logger.ErrorContext(r.Context(), "session lookup failed", "error", err)
		}
		return session.Session{}, false
	}
	return sess, true
}

// Require rejects requests without a valid session with 401.
func (s *Sessions) Require(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := s.Lookup(r)
		if !ok {
			respond.Error(w, http.StatusUnauthorized, "Not authorized, no session")
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, sess)))
	}
}

func (s *Sessions) cookie(value string, expires time.Time, maxAge int) *http.Cookie {
	c := &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		MaxAge:   maxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	if s.secure {
		c.Secure = true
		c.SameSite = http.SameSiteNoneMode
	}
	return c
}

// FromContext returns the session attached by Require.
func FromContext(ctx context.Context) (session.Session, bool) {
	sess, ok := ctx.Value(sessionKey{}).(session.Session)
	return sess, ok
}

// UserID returns the id of the authenticated user, or "" when there is none.
func UserID(ctx context.Context) string {
	sess, _ := FromContext(ctx)
	return sess.User.ID
}
