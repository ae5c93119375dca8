package handlers

import (
	"context"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hongminglow/smartdash-be/internal/auth"
	"github.com/hongminglow/smartdash-be/internal/middleware"
	"github.com/hongminglow/smartdash-be/internal/models"
)

func TestRegisterStartsSession(t *testing.T) {
	env := newTestEnv(t)
	c := env.client(t)

	user := env.signUp(t, c, "alice")
	assert.NotEmpty(t, user.ID)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.Equal(t, models.DefaultTheme, user.Theme)

	base, err := url.Parse(env.server.URL)
	require.NoError(t, err)
	var found bool
	for _, ck := range c.Jar.Cookies(base) {
		if ck.Name == middleware.CookieName {
			found = true
		}
	}
	assert.True(t, found, "session cookie not set")

	status, env2 := env.do(t, c, http.MethodGet, "/api/auth/me", nil)
	require.Equal(t, http.StatusOK, status)
	var me models.SessionUser
	decodeData(t, env2, &me)
	assert.Equal(t, user.ID, me.ID)
}

func TestRegisterRejectsDuplicatesAndBadInput(t *testing.T) {
	env := newTestEnv(t)
	env.signUp(t, env.client(t), "alice")

	status, body := env.do(t, env.client(t), http.MethodPost, "/api/auth/register", map[string]string{
		"username": "someone", "email": "ALICE@example.com", "password": "supersecret",
	})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "Email already registered", body.Message)

	status, body = env.do(t, env.client(t), http.MethodPost, "/api/auth/register", map[string]string{
		"username": "alice", "email": "other@example.com", "password": "supersecret",
	})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "Username already taken", body.Message)

	status, body = env.do(t, env.client(t), http.MethodPost, "/api/auth/register", map[string]string{
		"username": "bob", "email": "not-an-email", "password": "supersecret",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body.Message, "valid email")
}

func TestLoginLogout(t *testing.T) {
	env := newTestEnv(t)
	env.signUp(t, env.client(t), "alice")
	c := env.client(t)

	status, _ := env.do(t, c, http.MethodPost, "/api/auth/login", map[string]string{
		"email": "alice@example.com", "password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = env.do(t, c, http.MethodPost, "/api/auth/login", map[string]string{
		"email": "nobody@example.com", "password": "supersecret",
	})
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = env.do(t, c, http.MethodPost, "/api/auth/login", map[string]string{
		"email": "alice@example.com", "password": "supersecret",
	})
	require.Equal(t, http.StatusOK, status)

	status, _ = env.do(t, c, http.MethodGet, "/api/auth/me", nil)
	assert.Equal(t, http.StatusOK, status)

	status, _ = env.do(t, c, http.MethodPost, "/api/auth/logout", nil)
	assert.Equal(t, http.StatusOK, status)

	status, body := env.do(t, c, http.MethodGet, "/api/auth/me", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Not authorized, no session", body.Message)
}

func TestDemoLoginReusesAccount(t *testing.T) {
	env := newTestEnv(t)

	status, first := env.do(t, env.client(t), http.MethodPost, "/api/auth/demo-login", nil)
	require.Equal(t, http.StatusOK, status)
	status, second := env.do(t, env.client(t), http.MethodPost, "/api/auth/demo-login", nil)
	require.Equal(t, http.StatusOK, status)

	var a, b models.SessionUser
	decodeData(t, first, &a)
	decodeData(t, second, &b)
	assert.Equal(t, a.ID, b.ID)
	assert.Equal(t, demoEmail, a.Email)
	assert.Equal(t, demoUsername, a.Username)
}

func TestProfileUpdateRefreshesSession(t *testing.T) {
	env := newTestEnv(t)
	c := env.client(t)
	env.signUp(t, c, "alice")

	status, _ := env.do(t, c, http.MethodPut, "/api/auth/profile", map[string]string{"theme": "neon"})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = env.do(t, c, http.MethodPut, "/api/auth/profile", map[string]string{"theme": "dark", "avatar": "data:image/png;base64,AAAA"})
	require.Equal(t, http.StatusOK, status)

	_, body := env.do(t, c, http.MethodGet, "/api/auth/me", nil)
	var me models.SessionUser
	decodeData(t, body, &me)
	assert.Equal(t, "dark", me.Theme)
	assert.Equal(t, "data:image/png;base64,AAAA", me.Avatar)
}

func TestUpdatePassword(t *testing.T) {
	env := newTestEnv(t)
	c := env.client(t)
	env.signUp(t, c, "alice")

	status, body := env.do(t, c, http.MethodPut, "/api/auth/update-password", map[string]string{
		"currentPassword": "not-it", "newPassword": "brandnewpass",
	})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Incorrect current password", body.Message)

	status, _ = env.do(t, c, http.MethodPut, "/api/auth/update-password", map[string]string{
		"currentPassword": "supersecret", "newPassword": "brandnewpass",
	})
	require.Equal(t, http.StatusOK, status)

	status, _ = env.do(t, env.client(t), http.MethodPost, "/api/auth/login", map[string]string{
		"email": "alice@example.com", "password": "brandnewpass",
	})
	assert.Equal(t, http.StatusOK, status)
}

func TestForgotAndResetPassword(t *testing.T) {
	env := newTestEnv(t)
	user := env.signUp(t, env.client(t), "alice")
	c := env.client(t)

	status, _ := env.do(t, c, http.MethodPost, "/api/auth/forgot-password", map[string]string{"email": "ghost@example.com"})
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = env.do(t, c, http.MethodPost, "/api/auth/forgot-password", map[string]string{"email": "alice@example.com"})
	require.Equal(t, http.StatusOK, status)
	stored, err := env.store.FindUserByID(context.Background(), user.ID)
	require.NoError(t, err)
	require.NotEmpty(t, stored.ResetPasswordToken)

	// The emailed token is only logged, so plant a known one.
	token, hash, err := auth.NewResetToken()
	require.NoError(t, err)
	require.NoError(t, env.store.SetResetToken(context.Background(), user.ID, hash, time.Now().Add(resetTTL)))

	status, _ = env.do(t, c, http.MethodPut, "/api/auth/reset-password/not-a-token", map[string]string{"password": "resetpass1"})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = env.do(t, c, http.MethodPut, "/api/auth/reset-password/"+token, map[string]string{"password": "resetpass1"})
	require.Equal(t, http.StatusOK, status)

	status, _ = env.do(t, c, http.MethodPut, "/api/auth/reset-password/"+token, map[string]string{"password": "resetpass2"})
	assert.Equal(t, http.StatusBadRequest, status, "token must be single use")

	status, _ = env.do(t, c, http.MethodPost, "/api/auth/login", map[string]string{
		"email": "alice@example.com", "password": "resetpass1",
	})
	assert.Equal(t, http.StatusOK, status)
}

func TestExpiredResetTokenRejected(t *testing.T) {
	env := newTestEnv(t)
	user := env.signUp(t, env.client(t), "alice")

	token, hash, err := auth.NewResetToken()
	require.NoError(t, err)
	require.NoError(t, env.store.SetResetToken(context.Background(), user.ID, hash, time.Now().Add(-time.Minute)))

	status, body := env.do(t, env.client(t), http.MethodPut, "/api/auth/reset-password/"+token, map[string]string{"password": "resetpass1"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Invalid or expired token", body.Message)
}
