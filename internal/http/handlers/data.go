package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hongminglow/smartdash-be/internal/access"
	"github.com/hongminglow/smartdash-be/internal/analytics"
	"github.com/hongminglow/smartdash-be/internal/http/respond"
	"github.com/hongminglow/smartdash-be/internal/metrics"
	"github.com/hongminglow/smartdash-be/internal/middleware"
	"github.com/hongminglow/smartdash-be/internal/models"
	"github.com/hongminglow/smartdash-be/internal/models/dto"
	"github.com/hongminglow/smartdash-be/internal/storage"
)

// AlertEvaluator reacts to a freshly stored value.
type AlertEvaluator interface {
	Evaluate(ctx context.Context, userID, category string, value float64) ([]models.Notification, error)
}

// DataHandler serves the data point CRUD and aggregation endpoints.
type DataHandler struct {
	store     storage.DataStore
	evaluator AlertEvaluator
	logger    *slog.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

// NewDataHandler constructs the handler. evaluator and m may be nil.
func NewDataHandler(store storage.DataStore, evaluator AlertEvaluator, logger *slog.Logger, m *metrics.Metrics) *DataHandler {
	return &DataHandler{store: store, evaluator: evaluator, logger: logger, metrics: m, now: time.Now}
}

// Register attaches data routes to the mux behind the session guard.
func (h *DataHandler) Register(mux *http.ServeMux, sessions *middleware.Sessions) {
	mux.HandleFunc("GET /api/data", sessions.Require(h.handleList))
	mux.HandleFunc("GET /api/data/categories", sessions.Require(h.handleCategories))
	mux.HandleFunc("POST /api/data/add", sessions.Require(h.handleAdd))
	mux.HandleFunc("PUT /api/data/{id}", sessions.Require(h.handleUpdate))
	mux.HandleFunc("DELETE /api/data/{id}", sessions.Require(h.handleDelete))
	mux.HandleFunc("GET /api/data/kpi-comparison", sessions.Require(h.handleKPI))
}

func (h *DataHandler) handleList(w http.ResponseWriter, r *http.Request) {
	points, err := h.store.ListDataPoints(r.Context(), middleware.UserID(r.Context()), storage.DataFilter{}, false)
	if err != nil {
		respond.Failure(w, r, h.logger, err, "Entry not found", "failed to list data")
		return
	}
	respond.JSON(w, http.StatusOK, "ok", orEmpty(points))
}

func (h *DataHandler) handleCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.store.Categories(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		respond.Failure(w, r, h.logger, err, "Entry not found", "failed to list categories")
		return
	}
	respond.JSON(w, http.StatusOK, "ok", orEmpty(categories))
}

func (h *DataHandler) handleAdd(w http.ResponseWriter, r *http.Request) {
	var req dto.AddDataRequest
	if !decode(w, r, &req) {
		return
	}
	label := strings.TrimSpace(req.Label)
	if label == "" {
		respond.Error(w, http.StatusBadRequest, "label is required")
		return
	}
	category := strings.TrimSpace(req.Category)
	if category == "" {
		category = models.DefaultCategory
	}
	now := h.now().UTC()
	date := now
	if req.Date != nil {
		date = req.Date.UTC()
	}

	userID := middleware.UserID(r.Context())
	// The write and the alert pass finish even if the client goes away.
	ctx := context.WithoutCancel(r.Context())
	saved, err := h.store.CreateDataPoint(ctx, models.DataPoint{
		ID:        uuid.NewString(),
		UserID:    userID,
		Label:     label,
		Value:     req.Value.Float(),
		Category:  category,
		Date:      date,
		CreatedAt: now,
	})
	if err != nil {
		respond.Failure(w, r, h.logger, err, "Entry not found", "failed to save data")
		return
	}

	// Alerts match the stored category, so an omitted category is evaluated as "General".
	h.evaluateAlerts(ctx, userID, category, saved.Value)
	respond.JSON(w, http.StatusCreated, "data added", saved)
}

// evaluateAlerts runs the alert pass for a stored value. Failures are logged
// and counted, never reported to the client.
func (h *DataHandler) evaluateAlerts(ctx context.Context, userID, category string, value float64) {
	if h.evaluator == nil {
		return
	}
	defer func() {
		if rec := recover(); rec != nil {
			h.alertFailed(ctx, userID, category, fmt.Errorf("panic: %v", rec))
		}
	}()
	if _, err := h.evaluator.Evaluate(ctx, userID, category, value); err != nil {
		h.alertFailed(ctx, userID, category, err)
	}
}

func (h *DataHandler) alertFailed(ctx context.Context, userID, category string, err error) {
	h.logger.ErrorContext(ctx, "alert check failed", "user_id", userID, "category", category, "error", err)
	if h.metrics != nil {
		h.metrics.AlertFailures.Inc()
	}
}

func (h *DataHandler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var req dto.UpdateDataRequest
	if !decode(w, r, &req) {
		return
	}
	point, err := access.LoadOwned(r.Context(), h.store.FindDataPoint, r.PathValue("id"), middleware.UserID(r.Context()))
	if err != nil {
		respond.Failure(w, r, h.logger, err, "Entry not found", "failed to update entry")
		return
	}

	if req.Label != nil {
		label := strings.TrimSpace(*req.Label)
		if label == "" {
			respond.Error(w, http.StatusBadRequest, "label cannot be empty")
			return
		}
		point.Label = label
	}
	if req.Value != nil {
		point.Value = req.Value.Float()
	}
	if req.Category != nil {
		point.Category = strings.TrimSpace(*req.Category)
		if point.Category == "" {
			point.Category = models.DefaultCategory
		}
	}

	updated, err := h.store.UpdateDataPoint(r.Context(), point)
	if err != nil {
		respond.Failure(w, r, h.logger, err, "Entry not found", "failed to update entry")
		return
	}
	respond.JSON(w, http.StatusOK, "entry updated", updated)
}

func (h *DataHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	point, err := access.LoadOwned(r.Context(), h.store.FindDataPoint, r.PathValue("id"), middleware.UserID(r.Context()))
	if err != nil {
		respond.Failure(w, r, h.logger, err, "Entry not found", "failed to delete entry")
		return
	}
	if err := h.store.DeleteDataPoint(r.Context(), point.ID); err != nil {
		respond.Failure(w, r, h.logger, err, "Entry not found", "failed to delete entry")
		return
	}
	respond.JSON(w, http.StatusOK, "Entry deleted", nil)
}

func (h *DataHandler) handleKPI(w http.ResponseWriter, r *http.Request) {
	now := h.now().UTC()
	points, err := h.store.ListDataPoints(r.Context(), middleware.UserID(r.Context()),
		storage.DataFilter{From: analytics.KPIRange(now), To: now}, true)
	if err != nil {
		respond.Failure(w, r, h.logger, err, "Entry not found", "failed to compare KPIs")
		return
	}
	respond.JSON(w, http.StatusOK, "ok", analytics.CompareKPIs(points, now))
}
