package handlers

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hongminglow/smartdash-be/internal/models/dto"
	"github.com/hongminglow/smartdash-be/internal/predict"
)

func TestPredictionMinimumsSkipService(t *testing.T) {
	env := newTestEnv(t)
	c := env.client(t)
	user := env.signUp(t, c, "alice")
	now := time.Now()
	env.seedPoint(t, user.ID, "r1", 10, "Revenue", now.Add(-3*time.Hour))
	env.seedPoint(t, user.ID, "c1", 5, "Costs", now.Add(-2*time.Hour))
	env.seedPoint(t, user.ID, "c2", 6, "Costs", now.Add(-time.Hour))

	cases := []struct {
		path string
		want string
	}{
		{"/api/data/predict?category=Revenue", `Need at least 2 data entries in "Revenue"`},
		{"/api/data/simulate?category=Revenue&multiplier=1.5", `Need at least 2 data entries in "Revenue"`},
		{"/api/data/insights?category=Revenue", `Need at least 2 data entries in "Revenue"`},
		{"/api/data/correlations", "Need at least 4 data entries"},
	}
	for _, tc := range cases {
		status, body := env.do(t, c, http.MethodGet, tc.path, nil)
		assert.Equal(t, http.StatusBadRequest, status, tc.path)
		assert.Contains(t, body.Message, tc.want, tc.path)
	}
	assert.Zero(t, env.predictor.callCount())
}

func TestPredictSendsChronologicalSeries(t *testing.T) {
	env := newTestEnv(t)
	c := env.client(t)
	user := env.signUp(t, c, "alice")
	now := time.Now()
	env.seedPoint(t, user.ID, "second", 20, "Revenue", now.Add(-time.Hour))
	env.seedPoint(t, user.ID, "first", 10, "Revenue", now.Add(-2*time.Hour))
	env.seedPoint(t, user.ID, "other", 99, "Costs", now.Add(-30*time.Minute))
	env.predictor.out = map[string]any{"predictions": []any{30.0, 40.0}, "model": "linear"}

	status, body := env.do(t, c, http.MethodGet, "/api/data/predict?category=Revenue", nil)
	require.Equal(t, http.StatusOK, status, body.Message)

	var got dto.PredictResponse
	decodeData(t, body, &got)
	assert.Equal(t, "Revenue", got.Category)
	require.Len(t, got.Original, 2)
	assert.Equal(t, "first", got.Original[0].Label)
	assert.Equal(t, "second", got.Original[1].Label)
	assert.Equal(t, "Revenue", got.Original[0].Category)
	assert.Equal(t, []any{30.0, 40.0}, got.Predictions)
	assert.Equal(t, "linear", got.Model)

	payload, ok := env.predictor.last.(seriesPayload)
	require.True(t, ok)
	require.Len(t, payload.Data, 2)
	assert.Equal(t, 10.0, payload.Data[0].Value)
	assert.Nil(t, payload.Multiplier)
}

func TestPredictDefaultsToAllCategories(t *testing.T) {
	env := newTestEnv(t)
	c := env.client(t)
	user := env.signUp(t, c, "alice")
	now := time.Now()
	env.seedPoint(t, user.ID, "a", 1, "Revenue", now.Add(-2*time.Hour))
	env.seedPoint(t, user.ID, "b", 2, "Costs", now.Add(-time.Hour))

	status, body := env.do(t, c, http.MethodGet, "/api/data/predict", nil)
	require.Equal(t, http.StatusOK, status)
	var got dto.PredictResponse
	decodeData(t, body, &got)
	assert.Equal(t, "All", got.Category)
	assert.Len(t, got.Original, 2)
}

func TestPredictDateFilter(t *testing.T) {
	env := newTestEnv(t)
	c := env.client(t)
	user := env.signUp(t, c, "alice")
	env.seedPoint(t, user.ID, "jan", 1, "Revenue", time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC))
	env.seedPoint(t, user.ID, "feb", 2, "Revenue", time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC))
	env.seedPoint(t, user.ID, "feb-late", 3, "Revenue", time.Date(2026, 2, 28, 23, 0, 0, 0, time.UTC))
	env.seedPoint(t, user.ID, "mar", 4, "Revenue", time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC))

	status, body := env.do(t, c, http.MethodGet, "/api/data/predict?from=2026-02-01&to=2026-02-28", nil)
	require.Equal(t, http.StatusOK, status, body.Message)
	var got dto.PredictResponse
	decodeData(t, body, &got)
	require.Len(t, got.Original, 2)
	assert.Equal(t, "feb", got.Original[0].Label)
	assert.Equal(t, "feb-late", got.Original[1].Label)

	status, _ = env.do(t, c, http.MethodGet, "/api/data/predict?from=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = env.do(t, c, http.MethodGet, "/api/data/predict?from=2026-03-01&to=2026-02-01", nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestSimulateForwardsMultiplier(t *testing.T) {
	env := newTestEnv(t)
	c := env.client(t)
	user := env.signUp(t, c, "alice")
	now := time.Now()
	env.seedPoint(t, user.ID, "a", 100, "Revenue", now.Add(-2*time.Hour))
	env.seedPoint(t, user.ID, "b", 110, "Revenue", now.Add(-time.Hour))
	env.predictor.out = map[string]any{
		"original":   []any{120.0},
		"projected":  []any{180.0},
		"multiplier": 1.5,
		"model":      "linear",
	}

	status, body := env.do(t, c, http.MethodGet, "/api/data/simulate?multiplier=1.5", nil)
	require.Equal(t, http.StatusOK, status)
	var got dto.SimulateResponse
	decodeData(t, body, &got)
	assert.Equal(t, []any{120.0}, got.Predictions)
	assert.Equal(t, []any{180.0}, got.Projected)
	assert.Equal(t, 1.5, got.Multiplier)
	assert.Empty(t, got.Original[0].Category)

	payload := env.predictor.last.(seriesPayload)
	require.NotNil(t, payload.Multiplier)
	assert.Equal(t, 1.5, *payload.Multiplier)

	_, _ = env.do(t, c, http.MethodGet, "/api/data/simulate?multiplier=garbage", nil)
	payload = env.predictor.last.(seriesPayload)
	assert.Equal(t, 1.0, *payload.Multiplier)
}

func TestInsightsGroupsByCategory(t *testing.T) {
	env := newTestEnv(t)
	c := env.client(t)
	user := env.signUp(t, c, "alice")
	now := time.Now()
	env.seedPoint(t, user.ID, "r1", 1, "Revenue", now.Add(-3*time.Hour))
	env.seedPoint(t, user.ID, "c1", 2, "Costs", now.Add(-2*time.Hour))
	env.seedPoint(t, user.ID, "r2", 3, "Revenue", now.Add(-time.Hour))
	env.predictor.out = map[string]any{"insights": []any{"Revenue is trending up"}}

	status, body := env.do(t, c, http.MethodGet, "/api/data/insights", nil)
	require.Equal(t, http.StatusOK, status)

	var got map[string]any
	decodeData(t, body, &got)
	assert.Equal(t, "All", got["category"])
	assert.Equal(t, []any{"Revenue is trending up"}, got["insights"])
	assert.Len(t, got["original"], 3)

	payload, ok := env.predictor.last.(categoriesPayload)
	require.True(t, ok)
	require.Len(t, payload.Categories["Revenue"], 2)
	assert.Equal(t, "r1", payload.Categories["Revenue"][0].Label)
	assert.Equal(t, "r2", payload.Categories["Revenue"][1].Label)
	assert.Len(t, payload.Categories["Costs"], 1)
}

func TestPredictionServiceFailureIsBadGateway(t *testing.T) {
	env := newTestEnv(t)
	c := env.client(t)
	user := env.signUp(t, c, "alice")
	now := time.Now()
	for i, label := range []string{"a", "b", "c", "d"} {
		env.seedPoint(t, user.ID, label, float64(i), "Revenue", now.Add(-time.Duration(4-i)*time.Hour))
	}
	env.predictor.err = &predict.Error{Path: "/correlations", Message: "AI Engine timed out"}

	status, body := env.do(t, c, http.MethodGet, "/api/data/correlations", nil)
	assert.Equal(t, http.StatusBadGateway, status)
	assert.Equal(t, "AI Engine request failed: AI Engine timed out", body.Message)
	assert.Equal(t, 1, env.predictor.callCount())
}
