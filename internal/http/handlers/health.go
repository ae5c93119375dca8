package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/hongminglow/smartdash-be/internal/http/respond"
)

// HealthHandler returns uptime and basic status.
type HealthHandler struct {
	startedAt time.Time
}

// NewHealthHandler creates a health endpoint handler.
func NewHealthHandler(startedAt time.Time) *HealthHandler {
	return &HealthHandler{startedAt: startedAt}
}

// Register wires the handler into a ServeMux.
func (h *HealthHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.handle)
}

func (h *HealthHandler) handle(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, http.StatusOK, "ok", map[string]string{
		"status": "ok",
		"uptime": time.Since(h.startedAt).Truncate(time.Second).String(),
	})
}

// PointCounter counts stored data points across every user.
type PointCounter interface {
	CountDataPoints(ctx context.Context) (int64, error)
}

// StatsHandler serves the public landing-page counters.
type StatsHandler struct {
	points PointCounter
	logger *slog.Logger
}

// NewStatsHandler creates the public stats handler.
func NewStatsHandler(points PointCounter, logger *slog.Logger) *StatsHandler {
	return &StatsHandler{points: points, logger: logger}
}

// Register wires the handler into a ServeMux.
func (h *StatsHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/stats", h.handle)
}

func (h *StatsHandler) handle(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	count, err := h.points.CountDataPoints(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "count data points", "error", err)
		respond.JSON(w, http.StatusInternalServerError, "degraded", map[string]string{
			"status": "degraded",
			"error":  "failed to read stats",
		})
		return
	}
	respond.JSON(w, http.StatusOK, "ok", map[string]any{
		"predictionsCount": count,
		"status":           "operational",
		"latency":          time.Since(start).Milliseconds(),
	})
}
