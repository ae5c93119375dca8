package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hongminglow/smartdash-be/internal/analytics"
	"github.com/hongminglow/smartdash-be/internal/http/respond"
	"github.com/hongminglow/smartdash-be/internal/middleware"
	"github.com/hongminglow/smartdash-be/internal/models"
	"github.com/hongminglow/smartdash-be/internal/models/dto"
	"github.com/hongminglow/smartdash-be/internal/storage"
)

// Minimum number of points each prediction endpoint needs.
const (
	minPredictPoints     = 2
	minSimulatePoints    = 2
	minInsightPoints     = 2
	minCorrelationPoints = 4
)

const allCategories = "All"

// Predictor posts a payload to the prediction service.
type Predictor interface {
	Call(ctx context.Context, path string, payload any) (map[string]any, error)
}

// PredictionHandler proxies the user's series to the prediction service.
type PredictionHandler struct {
	store     storage.DataStore
	predictor Predictor
	logger    *slog.Logger
}

// NewPredictionHandler constructs the handler.
func NewPredictionHandler(store storage.DataStore, predictor Predictor, logger *slog.Logger) *PredictionHandler {
	return &PredictionHandler{store: store, predictor: predictor, logger: logger}
}

// Register attaches prediction routes to the mux behind the session guard.
func (h *PredictionHandler) Register(mux *http.ServeMux, sessions *middleware.Sessions) {
	mux.HandleFunc("GET /api/data/predict", sessions.Require(h.handlePredict))
	mux.HandleFunc("GET /api/data/insights", sessions.Require(h.handleInsights))
	mux.HandleFunc("GET /api/data/correlations", sessions.Require(h.handleCorrelations))
	mux.HandleFunc("GET /api/data/simulate", sessions.Require(h.handleSimulate))
}

type seriesPayload struct {
	Data       []analytics.SeriesPoint `json:"data"`
	Multiplier *float64                `json:"multiplier,omitempty"`
}

type categoriesPayload struct {
	Categories map[string][]analytics.SeriesPoint `json:"categories"`
}

func (h *PredictionHandler) handlePredict(w http.ResponseWriter, r *http.Request) {
	filter, ok := parseFilter(w, r)
	if !ok {
		return
	}
	points, ok := h.load(w, r, filter)
	if !ok {
		return
	}
	if len(points) < minPredictPoints {
		respond.Error(w, http.StatusBadRequest, notEnough(minPredictPoints, filter.Category, "to make predictions. Add more data first!"))
		return
	}

	out, ok := h.call(w, r, "/predict", seriesPayload{Data: analytics.Series(points)})
	if !ok {
		return
	}
	respond.JSON(w, http.StatusOK, "ok", dto.PredictResponse{
		Category:    categoryLabel(filter.Category),
		Original:    analytics.Originals(points, true),
		Predictions: out["predictions"],
		Model:       out["model"],
	})
}

func (h *PredictionHandler) handleSimulate(w http.ResponseWriter, r *http.Request) {
	filter, ok := parseFilter(w, r)
	if !ok {
		return
	}
	multiplier := analytics.ParseMultiplier(r.URL.Query().Get("multiplier"))
	points, ok := h.load(w, r, filter)
	if !ok {
		return
	}
	if len(points) < minSimulatePoints {
		respond.Error(w, http.StatusBadRequest, notEnough(minSimulatePoints, filter.Category, "to simulate."))
		return
	}

	out, ok := h.call(w, r, "/simulate", seriesPayload{Data: analytics.Series(points), Multiplier: &multiplier})
	if !ok {
		return
	}
	respond.JSON(w, http.StatusOK, "ok", dto.SimulateResponse{
		Category:    categoryLabel(filter.Category),
		Original:    analytics.Originals(points, false),
		Predictions: out["original"],
		Projected:   out["projected"],
		Multiplier:  out["multiplier"],
		Model:       out["model"],
	})
}

func (h *PredictionHandler) handleInsights(w http.ResponseWriter, r *http.Request) {
	h.grouped(w, r, "/insights", minInsightPoints, "to generate insights.")
}

func (h *PredictionHandler) handleCorrelations(w http.ResponseWriter, r *http.Request) {
	h.grouped(w, r, "/correlations", minCorrelationPoints, "across multiple categories to find correlations.")
}

// grouped sends the user's points grouped by category and passes the
// service's answer through with the filter and source points attached.
func (h *PredictionHandler) grouped(w http.ResponseWriter, r *http.Request, path string, minimum int, purpose string) {
	filter, ok := parseFilter(w, r)
	if !ok {
		return
	}
	points, ok := h.load(w, r, filter)
	if !ok {
		return
	}
	if len(points) < minimum {
		respond.Error(w, http.StatusBadRequest, notEnough(minimum, filter.Category, purpose))
		return
	}

	out, ok := h.call(w, r, path, categoriesPayload{Categories: analytics.GroupByCategory(points)})
	if !ok {
		return
	}
	out["category"] = categoryLabel(filter.Category)
	out["original"] = analytics.Originals(points, true)
	respond.JSON(w, http.StatusOK, "ok", out)
}

func (h *PredictionHandler) load(w http.ResponseWriter, r *http.Request, filter storage.DataFilter) ([]models.DataPoint, bool) {
	points, err := h.store.ListDataPoints(r.Context(), middleware.UserID(r.Context()), filter, true)
	if err != nil {
		respond.Failure(w, r, h.logger, err, "Entry not found", "failed to load data")
		return nil, false
	}
	return points, true
}

// call invokes the prediction service detached from the client's lifetime.
func (h *PredictionHandler) call(w http.ResponseWriter, r *http.Request, path string, payload any) (map[string]any, bool) {
	out, err := h.predictor.Call(context.WithoutCancel(r.Context()), path, payload)
	if err != nil {
		respond.Failure(w, r, h.logger, err, "Entry not found", "failed to reach AI Engine")
		return nil, false
	}
	if out == nil {
		out = map[string]any{}
	}
	return out, true
}

// parseFilter reads category, from and to. A date-only "to" covers the whole day.
func parseFilter(w http.ResponseWriter, r *http.Request) (storage.DataFilter, bool) {
	q := r.URL.Query()
	filter := storage.DataFilter{Category: strings.TrimSpace(q.Get("category"))}
	for _, bound := range []struct {
		name  string
		dst   *time.Time
		isEnd bool
	}{{"from", &filter.From, false}, {"to", &filter.To, true}} {
		raw := strings.TrimSpace(q.Get(bound.name))
		if raw == "" {
			continue
		}
		t, dateOnly, err := parseDate(raw)
		if err != nil {
			respond.Error(w, http.StatusBadRequest, fmt.Sprintf("%s must be a date (YYYY-MM-DD) or RFC3339 timestamp", bound.name))
			return storage.DataFilter{}, false
		}
		if dateOnly && bound.isEnd {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		*bound.dst = t
	}
	if !filter.From.IsZero() && !filter.To.IsZero() && filter.To.Before(filter.From) {
		respond.Error(w, http.StatusBadRequest, "to must not be before from")
		return storage.DataFilter{}, false
	}
	return filter, true
}

func parseDate(raw string) (time.Time, bool, error) {
	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		return t, true, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	return t.UTC(), false, err
}

func notEnough(minimum int, category, purpose string) string {
	scope := ""
	if category != "" {
		scope = fmt.Sprintf(" in %q", category)
	}
	return fmt.Sprintf("Need at least %d data entries%s %s", minimum, scope, purpose)
}

func categoryLabel(category string) string {
	if category == "" {
		return allCategories
	}
	return category
}
