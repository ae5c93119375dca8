package handlers

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hongminglow/smartdash-be/internal/access"
	"github.com/hongminglow/smartdash-be/internal/http/respond"
	"github.com/hongminglow/smartdash-be/internal/middleware"
	"github.com/hongminglow/smartdash-be/internal/models"
	"github.com/hongminglow/smartdash-be/internal/models/dto"
	"github.com/hongminglow/smartdash-be/internal/storage"
)

const notificationLimit = 20

// AlertStore is the slice of storage the alert endpoints need.
type AlertStore interface {
	storage.AlertStore
	storage.NotificationStore
}

// AlertHandler serves alert rules and the notification feed.
type AlertHandler struct {
	store  AlertStore
	logger *slog.Logger
	now    func() time.Time
}

func NewAlertHandler(store AlertStore, logger *slog.Logger) *AlertHandler {
	return &AlertHandler{store: store, logger: logger, now: time.Now}
}

// Register attaches alert routes to the mux behind the session guard.
func (h *AlertHandler) Register(mux *http.ServeMux, sessions *middleware.Sessions) {
	mux.HandleFunc("GET /api/alerts", sessions.Require(h.handleList))
	mux.HandleFunc("POST /api/alerts", sessions.Require(h.handleCreate))
	mux.HandleFunc("DELETE /api/alerts/{id}", sessions.Require(h.handleDelete))
	mux.HandleFunc("GET /api/alerts/notifications", sessions.Require(h.handleNotifications))
	mux.HandleFunc("PUT /api/alerts/notifications/{id}/read", sessions.Require(h.handleMarkRead))
}

func (h *AlertHandler) handleList(w http.ResponseWriter, r *http.Request) {
	alerts, err := h.store.ListAlerts(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		respond.Failure(w, r, h.logger, err, "Alert not found", "failed to list alerts")
		return
	}
	respond.JSON(w, http.StatusOK, "ok", orEmpty(alerts))
}

func (h *AlertHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateAlertRequest
	if !decode(w, r, &req) {
		return
	}
	category := strings.TrimSpace(req.Category)
	if category == "" {
		respond.Error(w, http.StatusBadRequest, "category is required")
		return
	}
	alert, err := h.store.CreateAlert(r.Context(), models.Alert{
		ID:        uuid.NewString(),
		UserID:    middleware.UserID(r.Context()),
		Category:  category,
		Condition: models.Condition(req.Condition),
		Threshold: req.Threshold.Float(),
		Active:    true,
		CreatedAt: h.now().UTC(),
	})
	if err != nil {
		respond.Failure(w, r, h.logger, err, "Alert not found", "failed to create alert")
		return
	}
	respond.JSON(w, http.StatusCreated, "alert created", alert)
}

func (h *AlertHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	alert, err := access.LoadOwned(r.Context(), h.store.FindAlert, r.PathValue("id"), middleware.UserID(r.Context()))
	if err != nil {
		respond.Failure(w, r, h.logger, err, "Alert not found", "failed to delete alert")
		return
	}
	if err := h.store.DeleteAlert(r.Context(), alert.ID); err != nil {
		respond.Failure(w, r, h.logger, err, "Alert not found", "failed to delete alert")
		return
	}
	respond.JSON(w, http.StatusOK, "Alert removed", nil)
}

func (h *AlertHandler) handleNotifications(w http.ResponseWriter, r *http.Request) {
	items, err := h.store.LatestNotifications(r.Context(), middleware.UserID(r.Context()), notificationLimit)
	if err != nil {
		respond.Failure(w, r, h.logger, err, "Notification not found", "failed to list notifications")
		return
	}
	respond.JSON(w, http.StatusOK, "ok", orEmpty(items))
}

func (h *AlertHandler) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	n, err := access.LoadOwned(r.Context(), h.store.FindNotification, r.PathValue("id"), middleware.UserID(r.Context()))
	if err != nil {
		respond.Failure(w, r, h.logger, err, "Notification not found", "failed to update notification")
		return
	}
	updated, err := h.store.MarkNotificationRead(r.Context(), n.ID)
	if err != nil {
		respond.Failure(w, r, h.logger, err, "Notification not found", "failed to update notification")
		return
	}
	respond.JSON(w, http.StatusOK, "notification marked read", updated)
}
