package handlers

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hongminglow/smartdash-be/internal/models"
	"github.com/hongminglow/smartdash-be/internal/models/dto"
)

type failingEvaluator struct{ calls int }

func (f *failingEvaluator) Evaluate(context.Context, string, string, float64) ([]models.Notification, error) {
	f.calls++
	return nil, errors.New("alerts collection unavailable")
}

type panickingEvaluator struct{}

func (panickingEvaluator) Evaluate(context.Context, string, string, float64) ([]models.Notification, error) {
	panic("boom")
}

func TestAddDataTriggersSingleNotification(t *testing.T) {
	env := newTestEnv(t)
	c := env.client(t)
	env.signUp(t, c, "alice")

	status, _ := env.do(t, c, http.MethodPost, "/api/alerts", map[string]any{
		"category": "Revenue", "condition": "lt", "threshold": 1500,
	})
	require.Equal(t, http.StatusCreated, status)

	point := env.addPoint(t, c, "Week 1", 1200, "Revenue")
	assert.Equal(t, 1200.0, point.Value)

	status, body := env.do(t, c, http.MethodGet, "/api/alerts/notifications", nil)
	require.Equal(t, http.StatusOK, status)
	var notes []models.Notification
	decodeData(t, body, &notes)
	require.Len(t, notes, 1)
	for _, want := range []string{"Revenue", "below", "1500", "1200"} {
		assert.Contains(t, notes[0].Message, want)
	}
	assert.False(t, notes[0].Read)
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.NotificationsSent))
}

func TestAddDataAcceptsNumericStringsAndDefaultsCategory(t *testing.T) {
	env := newTestEnv(t)
	c := env.client(t)
	env.signUp(t, c, "alice")

	point := env.addPoint(t, c, "Visitors", "12.5", "")
	assert.Equal(t, 12.5, point.Value)
	assert.Equal(t, models.DefaultCategory, point.Category)

	status, body := env.do(t, c, http.MethodPost, "/api/data/add", map[string]any{"label": "Bad", "value": "twelve"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body.Message, "not a number")

	status, body = env.do(t, c, http.MethodPost, "/api/data/add", map[string]any{"value": 3})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body.Message, "label is required")

	status, _ = env.do(t, c, http.MethodPost, "/api/data/add", map[string]any{"label": "No value"})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestAlertFailureDoesNotChangeIngestionResponse(t *testing.T) {
	run := func(t *testing.T, evaluator AlertEvaluator) (int, envelope) {
		env := newTestEnv(t)
		env.data.evaluator = evaluator
		c := env.client(t)
		env.signUp(t, c, "alice")
		return env.do(t, c, http.MethodPost, "/api/data/add", map[string]any{
			"label": "Week 1", "value": 1200, "category": "Revenue",
		})
	}

	skippedStatus, skipped := run(t, nil)
	failing := &failingEvaluator{}
	failedStatus, failed := run(t, failing)
	panicStatus, panicked := run(t, panickingEvaluator{})

	require.Equal(t, 1, failing.calls)
	for _, got := range []struct {
		status int
		body   envelope
	}{{failedStatus, failed}, {panicStatus, panicked}} {
		assert.Equal(t, skippedStatus, got.status)
		assert.Equal(t, skipped.Code, got.body.Code)
		assert.Equal(t, skipped.Message, got.body.Message)

		var want, have models.DataPoint
		decodeData(t, skipped, &want)
		decodeData(t, got.body, &have)
		assert.Equal(t, want.Label, have.Label)
		assert.Equal(t, want.Value, have.Value)
		assert.Equal(t, want.Category, have.Category)
	}
	assert.Equal(t, http.StatusCreated, skippedStatus)
}

func TestAlertFailureIsCounted(t *testing.T) {
	env := newTestEnv(t)
	env.data.evaluator = &failingEvaluator{}
	c := env.client(t)
	env.signUp(t, c, "alice")

	env.addPoint(t, c, "Week 1", 10, "Revenue")
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.AlertFailures))
}

func TestOwnershipIsEnforced(t *testing.T) {
	env := newTestEnv(t)
	owner, intruder := env.client(t), env.client(t)
	env.signUp(t, owner, "alice")
	env.signUp(t, intruder, "mallory")

	point := env.addPoint(t, owner, "Week 1", 100, "Revenue")

	status, body := env.do(t, intruder, http.MethodPut, "/api/data/"+point.ID, map[string]any{"value": 1})
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "Not authorized", body.Message)

	status, _ = env.do(t, intruder, http.MethodDelete, "/api/data/"+point.ID, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = env.do(t, intruder, http.MethodDelete, "/api/data/does-not-exist", nil)
	assert.Equal(t, http.StatusNotFound, status)

	stored, err := env.store.FindDataPoint(context.Background(), point.ID)
	require.NoError(t, err)
	assert.Equal(t, 100.0, stored.Value)

	status, body = env.do(t, intruder, http.MethodGet, "/api/data", nil)
	require.Equal(t, http.StatusOK, status)
	var visible []models.DataPoint
	decodeData(t, body, &visible)
	assert.Empty(t, visible)
}

func TestUpdateAndDeleteOwnPoint(t *testing.T) {
	env := newTestEnv(t)
	c := env.client(t)
	env.signUp(t, c, "alice")
	point := env.addPoint(t, c, "Week 1", 100, "Revenue")

	status, body := env.do(t, c, http.MethodPut, "/api/data/"+point.ID, map[string]any{"value": "250"})
	require.Equal(t, http.StatusOK, status)
	var updated models.DataPoint
	decodeData(t, body, &updated)
	assert.Equal(t, 250.0, updated.Value)
	assert.Equal(t, "Week 1", updated.Label)
	assert.Equal(t, "Revenue", updated.Category)

	status, _ = env.do(t, c, http.MethodPut, "/api/data/"+point.ID, map[string]any{"label": "   "})
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = env.do(t, c, http.MethodDelete, "/api/data/"+point.ID, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Entry deleted", body.Message)

	status, _ = env.do(t, c, http.MethodDelete, "/api/data/"+point.ID, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestListAndCategories(t *testing.T) {
	env := newTestEnv(t)
	c := env.client(t)
	user := env.signUp(t, c, "alice")
	base := time.Now().Add(-time.Hour)
	env.seedPoint(t, user.ID, "old", 1, "Costs", base.Add(-48*time.Hour))
	env.seedPoint(t, user.ID, "new", 2, "Revenue", base)
	env.seedPoint(t, user.ID, "mid", 3, "Revenue", base.Add(-24*time.Hour))

	_, body := env.do(t, c, http.MethodGet, "/api/data", nil)
	var points []models.DataPoint
	decodeData(t, body, &points)
	require.Len(t, points, 3)
	assert.Equal(t, []string{"new", "mid", "old"}, []string{points[0].Label, points[1].Label, points[2].Label})

	_, body = env.do(t, c, http.MethodGet, "/api/data/categories", nil)
	var categories []string
	decodeData(t, body, &categories)
	assert.ElementsMatch(t, []string{"Costs", "Revenue"}, categories)
}

func TestKPIComparisonEndpoint(t *testing.T) {
	env := newTestEnv(t)
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	env.data.now = func() time.Time { return now }
	c := env.client(t)
	user := env.signUp(t, c, "alice")

	env.seedPoint(t, user.ID, "a", 30, "Revenue", now.Add(-24*time.Hour))
	env.seedPoint(t, user.ID, "b", 10, "Revenue", now.Add(-3*24*time.Hour))
	env.seedPoint(t, user.ID, "c", 20, "Revenue", now.Add(-10*24*time.Hour))
	env.seedPoint(t, user.ID, "d", 999, "Revenue", now.Add(-20*24*time.Hour))

	status, body := env.do(t, c, http.MethodGet, "/api/data/kpi-comparison", nil)
	require.Equal(t, http.StatusOK, status)
	var got dto.KPIComparison
	decodeData(t, body, &got)
	assert.Equal(t, 2, got.Recent.Entries)
	assert.Equal(t, 40.0, got.Recent.TotalValue)
	assert.Equal(t, 20.0, got.Recent.Average)
	assert.Equal(t, 1, got.Previous.Entries)
	assert.Equal(t, 100.0, got.Changes.Entries)
	assert.Equal(t, 100.0, got.Changes.TotalValue)
	assert.Equal(t, 0.0, got.Changes.Average)
}

func TestDataRoutesRequireSession(t *testing.T) {
	env := newTestEnv(t)
	for _, path := range []string{"/api/data", "/api/data/categories", "/api/data/kpi-comparison", "/api/data/predict", "/api/alerts"} {
		status, _ := env.do(t, env.client(t), http.MethodGet, path, nil)
		assert.Equal(t, http.StatusUnauthorized, status, path)
	}
}

func TestNonFiniteNumbersRejected(t *testing.T) {
	env := newTestEnv(t)
	c := env.client(t)
	env.signUp(t, c, "alice")
	point := env.addPoint(t, c, "Week 1", 100, "Revenue")

	for _, bad := range []string{"NaN", "Infinity", "-Inf"} {
		status, body := env.do(t, c, http.MethodPost, "/api/data/add", map[string]any{"label": "x", "value": bad})
		assert.Equal(t, http.StatusBadRequest, status, bad)
		assert.Contains(t, body.Message, "finite number", bad)

		status, _ = env.do(t, c, http.MethodPut, "/api/data/"+point.ID, map[string]any{"value": bad})
		assert.Equal(t, http.StatusBadRequest, status, bad)

		status, _ = env.do(t, c, http.MethodPost, "/api/alerts", map[string]any{
			"category": "Revenue", "condition": "gt", "threshold": bad,
		})
		assert.Equal(t, http.StatusBadRequest, status, bad)
	}

	status, body := env.do(t, c, http.MethodGet, "/api/data", nil)
	require.Equal(t, http.StatusOK, status)
	var points []models.DataPoint
	decodeData(t, body, &points)
	require.Len(t, points, 1)
	assert.Equal(t, 100.0, points[0].Value)

	status, _ = env.do(t, c, http.MethodGet, "/api/data/kpi-comparison", nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestOmittedCategoryFiresGeneralAlerts(t *testing.T) {
	env := newTestEnv(t)
	c := env.client(t)
	env.signUp(t, c, "alice")

	status, _ := env.do(t, c, http.MethodPost, "/api/alerts", map[string]any{
		"category": models.DefaultCategory, "condition": "gt", "threshold": 10,
	})
	require.Equal(t, http.StatusCreated, status)

	status, _ = env.do(t, c, http.MethodPost, "/api/data/add", map[string]any{"label": "Spike", "value": 50})
	require.Equal(t, http.StatusCreated, status)

	_, body := env.do(t, c, http.MethodGet, "/api/alerts/notifications", nil)
	var notes []models.Notification
	decodeData(t, body, &notes)
	require.Len(t, notes, 1)
	assert.Contains(t, notes[0].Message, "General is above 10")
}
