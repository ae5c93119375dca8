package handlers

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hongminglow/smartdash-be/internal/auth"
	"github.com/hongminglow/smartdash-be/internal/http/respond"
	"github.com/hongminglow/smartdash-be/internal/middleware"
	"github.com/hongminglow/smartdash-be/internal/models"
	"github.com/hongminglow/smartdash-be/internal/models/dto"
	"github.com/hongminglow/smartdash-be/internal/storage"
)

const (
	demoEmail    = "demo@smartdashboard.com"
	demoUsername = "Recruiter Demo"
	resetTTL     = 10 * time.Minute
)

// AuthHandler owns the session-based account endpoints.
type AuthHandler struct {
	users       storage.UserStore
	sessions    *middleware.Sessions
	limiter     *middleware.RateLimiter
	frontendURL string
	logger      *slog.Logger
	now         func() time.Time
}

// NewAuthHandler constructs the handler. limiter may be nil to disable throttling.
func NewAuthHandler(users storage.UserStore, sessions *middleware.Sessions, limiter *middleware.RateLimiter, frontendURL string, logger *slog.Logger) *AuthHandler {
	if frontendURL == "" {
		frontendURL = "http://localhost:3000"
	}
	return &AuthHandler{
		users:       users,
		sessions:    sessions,
		limiter:     limiter,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		logger:      logger,
		now:         time.Now,
	}
}

// Register attaches auth routes to the mux.
func (h *AuthHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/auth/register", h.throttle(h.handleRegister))
	mux.HandleFunc("POST /api/auth/login", h.throttle(h.handleLogin))
	mux.HandleFunc("POST /api/auth/demo-login", h.throttle(h.handleDemoLogin))
	mux.HandleFunc("POST /api/auth/logout", h.handleLogout)
	mux.HandleFunc("GET /api/auth/me", h.sessions.Require(h.handleMe))
	mux.HandleFunc("PUT /api/auth/profile", h.sessions.Require(h.handleProfile))
	mux.HandleFunc("PUT /api/auth/update-password", h.sessions.Require(h.handleUpdatePassword))
	mux.HandleFunc("POST /api/auth/forgot-password", h.throttle(h.handleForgotPassword))
	mux.HandleFunc("PUT /api/auth/reset-password/{token}", h.throttle(h.handleResetPassword))
}

func (h *AuthHandler) throttle(next http.HandlerFunc) http.HandlerFunc {
	if h.limiter == nil {
		return next
	}
	return h.limiter.Wrap(next)
}

func (h *AuthHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if !decode(w, r, &req) {
		return
	}
	username := strings.TrimSpace(req.Username)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if username == "" {
		respond.Error(w, http.StatusBadRequest, "username is required")
		return
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		respond.Error(w, http.StatusInternalServerError, "failed to hash password")
		return
	}
	user := models.User{
		ID:            uuid.NewString(),
		Username:      username,
		Email:         email,
		PasswordHash:  passwordHash,
		Theme:         models.DefaultTheme,
		NotifyByEmail: true,
		CreatedAt:     h.now().UTC(),
	}
	created, err := h.users.CreateUser(r.Context(), user)
	if err != nil {
		var conflict *storage.ConflictError
		switch {
		case errors.As(err, &conflict) && conflict.Field == "email":
			respond.Error(w, http.StatusConflict, "Email already registered")
		case errors.As(err, &conflict):
			respond.Error(w, http.StatusConflict, "Username already taken")
		default:
			h.logger.ErrorContext(r.Context(), "create user", "error", err)
			respond.Error(w, http.StatusInternalServerError, "failed to create user")
		}
		return
	}

	h.startSession(w, r, created, http.StatusCreated, "User created successfully")
}

func (h *AuthHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if !decode(w, r, &req) {
		return
	}
	user, err := h.users.FindUserByEmail(r.Context(), strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respond.Error(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		h.logger.ErrorContext(r.Context(), "login lookup", "error", err)
		respond.Error(w, http.StatusInternalServerError, "failed to fetch user")
		return
	}
	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		respond.Error(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	h.startSession(w, r, user, http.StatusOK, "login successful")
}

func (h *AuthHandler) handleDemoLogin(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.FindUserByEmail(r.Context(), demoEmail)
	if errors.Is(err, storage.ErrNotFound) {
		user, err = h.createDemoUser(r)
	}
	if err != nil {
		h.logger.ErrorContext(r.Context(), "demo login", "error", err)
		respond.Error(w, http.StatusInternalServerError, "failed to start demo session")
		return
	}
	h.startSession(w, r, user, http.StatusOK, "demo login successful")
}

func (h *AuthHandler) createDemoUser(r *http.Request) (models.User, error) {
	// The demo account is only reachable through demo-login, so its password is random.
	secret := make([]byte, 24)
	if _, err := rand.Read(secret); err != nil {
		return models.User{}, err
	}
	hash, err := auth.HashPassword(hex.EncodeToString(secret))
	if err != nil {
		return models.User{}, err
	}
	user, err := h.users.CreateUser(r.Context(), models.User{
		ID:           uuid.NewString(),
		Username:     demoUsername,
		Email:        demoEmail,
		PasswordHash: hash,
		Theme:        models.DefaultTheme,
		CreatedAt:    h.now().UTC(),
	})
	if errors.Is(err, storage.ErrAlreadyExists) {
		// Lost a race with a concurrent demo login.
		return h.users.FindUserByEmail(r.Context(), demoEmail)
	}
	return user, err
}

func (h *AuthHandler) startSession(w http.ResponseWriter, r *http.Request, user models.User, status int, message string) {
	sess, err := h.sessions.Issue(w, r, user.Snapshot())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "issue session", "user_id", user.ID, "error", err)
		respond.Error(w, http.StatusInternalServerError, "failed to start session")
		return
	}
	respond.JSON(w, status, message, sess.User)
}

func (h *AuthHandler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Destroy(w, r); err != nil {
		h.logger.ErrorContext(r.Context(), "destroy session", "error", err)
		respond.Error(w, http.StatusInternalServerError, "Could not log out")
		return
	}
	respond.JSON(w, http.StatusOK, "Logout successful", nil)
}

func (h *AuthHandler) handleMe(w http.ResponseWriter, r *http.Request) {
	sess, _ := middleware.FromContext(r.Context())
	respond.JSON(w, http.StatusOK, "ok", sess.User)
}

func (h *AuthHandler) handleProfile(w http.ResponseWriter, r *http.Request) {
	var req dto.ProfileRequest
	if !decode(w, r, &req) {
		return
	}
	userID := middleware.UserID(r.Context())
	user, err := h.users.UpdateProfile(r.Context(), userID, req.Avatar, req.Theme)
	if err != nil {
		respond.Failure(w, r, h.logger, err, "User not found", "failed to update profile")
		return
	}
	if err := h.sessions.Refresh(r.Context(), user.Snapshot()); err != nil {
		h.logger.WarnContext(r.Context(), "refresh session after profile update", "user_id", userID, "error", err)
	}
	respond.JSON(w, http.StatusOK, "profile updated", user.Snapshot())
}

func (h *AuthHandler) handleUpdatePassword(w http.ResponseWriter, r *http.Request) {
	var req dto.UpdatePasswordRequest
	if !decode(w, r, &req) {
		return
	}
	userID := middleware.UserID(r.Context())
	user, err := h.users.FindUserByID(r.Context(), userID)
	if err != nil {
		respond.Failure(w, r, h.logger, err, "User not found", "failed to update password")
		return
	}
	if !auth.CheckPassword(user.PasswordHash, req.CurrentPassword) {
		respond.Error(w, http.StatusUnauthorized, "Incorrect current password")
		return
	}
	if err := h.setPassword(r, user.ID, req.NewPassword); err != nil {
		respond.Failure(w, r, h.logger, err, "User not found", "failed to update password")
		return
	}
	respond.JSON(w, http.StatusOK, "Password updated successfully", nil)
}

func (h *AuthHandler) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req dto.ForgotPasswordRequest
	if !decode(w, r, &req) {
		return
	}
	user, err := h.users.FindUserByEmail(r.Context(), strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		respond.Failure(w, r, h.logger, err, "Email could not be found", "failed to issue reset token")
		return
	}
	token, hash, err := auth.NewResetToken()
	if err != nil {
		h.logger.ErrorContext(r.Context(), "reset token", "error", err)
		respond.Error(w, http.StatusInternalServerError, "failed to issue reset token")
		return
	}
	if err := h.users.SetResetToken(r.Context(), user.ID, hash, h.now().Add(resetTTL)); err != nil {
		respond.Failure(w, r, h.logger, err, "Email could not be found", "failed to issue reset token")
		return
	}
	// The link is only logged; there is no mail delivery.
	h.logger.InfoContext(r.Context(), "password reset link issued",
		"user_id", user.ID, "reset_url", h.frontendURL+"/reset-password/"+token)
	respond.JSON(w, http.StatusOK, "Password reset link issued", nil)
}

func (h *AuthHandler) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req dto.ResetPasswordRequest
	if !decode(w, r, &req) {
		return
	}
	user, err := h.users.FindUserByResetToken(r.Context(), auth.HashResetToken(r.PathValue("token")), h.now())
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respond.Error(w, http.StatusBadRequest, "Invalid or expired token")
			return
		}
		respond.Failure(w, r, h.logger, err, "Invalid or expired token", "failed to reset password")
		return
	}
	if err := h.setPassword(r, user.ID, req.Password); err != nil {
		respond.Failure(w, r, h.logger, err, "User not found", "failed to reset password")
		return
	}
	respond.JSON(w, http.StatusOK, "Password reset successful", nil)
}

// setPassword hashes and stores a new password; the store also clears any reset token.
func (h *AuthHandler) setPassword(r *http.Request, userID, password string) error {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	return h.users.UpdatePassword(r.Context(), userID, hash)
}
