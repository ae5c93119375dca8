package respond

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hongminglow/smartdash-be/internal/predict"
	"github.com/hongminglow/smartdash-be/internal/storage"
)

// Envelope is the standard API response wrapper used across handlers.
type Envelope struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// JSON writes a success or informational response using the common envelope.
func JSON(w http.ResponseWriter, status int, message string, data any) {
	write(w, status, Envelope{Code: status, Message: message, Data: data})
}

// Error writes an error response with the shared envelope structure.
func Error(w http.ResponseWriter, status int, message string) {
	write(w, status, Envelope{Code: status, Message: message})
}

// Failure maps err onto the API's error taxonomy:
//
//	storage.ErrNotFound      404 with notFound
//	storage.ErrForbidden     403
//	storage.ErrAlreadyExists 409
//	*predict.Error           502 carrying the final attempt's message
//	anything else            500 with generic, details only in the log
func Failure(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error, notFound, generic string) {
	var upstream *predict.Error
	switch {
	case errors.Is(err, storage.ErrNotFound):
		Error(w, http.StatusNotFound, notFound)
	case errors.Is(err, storage.ErrForbidden):
		Error(w, http.StatusForbidden, "Not authorized")
	case errors.Is(err, storage.ErrAlreadyExists):
		Error(w, http.StatusConflict, err.Error())
	case errors.As(err, &upstream):
		logger.WarnContext(r.Context(), "ai engine request failed", "path", upstream.Path, "error", upstream.Message)
		Error(w, http.StatusBadGateway, "AI Engine request failed: "+upstream.Message)
	default:
		logger.ErrorContext(r.Context(), generic, "method", r.Method, "path", r.URL.Path, "error", err)
		Error(w, http.StatusInternalServerError, generic)
	}
}

func write(w http.ResponseWriter, status int, payload Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("respond: encode payload failed", "status", status, "error", err)
	}
}
