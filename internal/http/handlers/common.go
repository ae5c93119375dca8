package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/hongminglow/smartdash-be/internal/http/respond"
	"github.com/hongminglow/smartdash-be/internal/models/dto"
)

const maxBodyBytes = 2 << 20

// decode reads a JSON body into dst and validates it. On failure it writes a
// 400 response and returns false.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			respond.Error(w, http.StatusBadRequest, "request body is required")
		case errors.As(err, &maxErr):
			respond.Error(w, http.StatusRequestEntityTooLarge, "request body too large")
		default:
			respond.Error(w, http.StatusBadRequest, "invalid JSON payload: "+err.Error())
		}
		return false
	}
	if err := dto.Validate(dst); err != nil {
		respond.Error(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

func orEmpty[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
