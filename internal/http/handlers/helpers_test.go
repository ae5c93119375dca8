package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hongminglow/smartdash-be/internal/alerting"
	"github.com/hongminglow/smartdash-be/internal/auth"
	"github.com/hongminglow/smartdash-be/internal/metrics"
	"github.com/hongminglow/smartdash-be/internal/middleware"
	"github.com/hongminglow/smartdash-be/internal/models"
	"github.com/hongminglow/smartdash-be/internal/session"
	"github.com/hongminglow/smartdash-be/internal/storage/memory"
)

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type fakePredictor struct {
	mu    sync.Mutex
	calls []string
	last  any
	out   map[string]any
	err   error
}

func (f *fakePredictor) Call(_ context.Context, path string, payload any) (map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, path)
	f.last = payload
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[string]any, len(f.out))
	for k, v := range f.out {
		out[k] = v
	}
	return out, nil
}

func (f *fakePredictor) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type testEnv struct {
	server    *httptest.Server
	store     *memory.Store
	predictor *fakePredictor
	data      *DataHandler
	auth      *AuthHandler
	metrics   *metrics.Metrics
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := memory.New()
	logger := quiet()
	m := metrics.New()
	sessions := middleware.NewSessions(session.NewMemoryStore(), auth.NewTokenManager("test-secret", "smartdash"), 7*24*time.Hour, false, logger)

	env := &testEnv{store: store, predictor: &fakePredictor{}, metrics: m}
	env.auth = NewAuthHandler(store, sessions, nil, "http://localhost:3000", logger)
	env.data = NewDataHandler(store, alerting.NewEvaluator(store, store, logger, m), logger, m)

	mux := http.NewServeMux()
	env.auth.Register(mux)
	env.data.Register(mux, sessions)
	NewPredictionHandler(store, env.predictor, logger).Register(mux, sessions)
	NewAlertHandler(store, logger).Register(mux, sessions)

	env.server = httptest.NewServer(mux)
	t.Cleanup(env.server.Close)
	return env
}

// client returns an HTTP client with its own cookie jar, i.e. its own browser.
func (e *testEnv) client(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{Jar: jar}
}

func (e *testEnv) do(t *testing.T, c *http.Client, method, path string, body any) (int, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, e.server.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

// signUp registers a fresh account on c and returns its session user.
func (e *testEnv) signUp(t *testing.T, c *http.Client, username string) models.SessionUser {
	t.Helper()
	status, env := e.do(t, c, http.MethodPost, "/api/auth/register", map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": "supersecret",
	})
	require.Equal(t, http.StatusCreated, status, env.Message)
	var user models.SessionUser
	decodeData(t, env, &user)
	return user
}

func (e *testEnv) addPoint(t *testing.T, c *http.Client, label string, value any, category string) models.DataPoint {
	t.Helper()
	status, env := e.do(t, c, http.MethodPost, "/api/data/add", map[string]any{
		"label": label, "value": value, "category": category,
	})
	require.Equal(t, http.StatusCreated, status, env.Message)
	var point models.DataPoint
	decodeData(t, env, &point)
	return point
}

func (e *testEnv) seedPoint(t *testing.T, userID, label string, value float64, category string, date time.Time) {
	t.Helper()
	_, err := e.store.CreateDataPoint(context.Background(), models.DataPoint{
		ID: label + "-" + userID, UserID: userID, Label: label, Value: value, Category: category, Date: date,
	})
	require.NoError(t, err)
}

func decodeData(t *testing.T, env envelope, dst any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(env.Data, dst))
}
