package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/loanserve/backend/internal/apperror"
)

// ErrorResponse represents a JSON error response body.
type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// respondJSON writes a JSON response with the given status code.
// It sets the Content-Type header to application/json.
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// respondError writes a JSON error response with the given status code and message.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, ErrorResponse{Error: message})
}

// respondServiceError maps a service error onto the wire: apperror carries its
// own status and message, anything else becomes an opaque 500.
func respondServiceError(w http.ResponseWriter, err error) {
	status := apperror.GetStatusCode(err)
	if status == http.StatusInternalServerError {
		respondError(w, status, "an internal error occurred")
		return
	}

	resp := ErrorResponse{Error: apperror.GetMessage(err)}
	if appErr, ok := err.(*apperror.AppError); ok {
		resp.Field = appErr.Field
	}
	respondJSON(w, status, resp)
}

// parseID parses a URL parameter as a positive int64 identifier.
func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, strconv.ErrRange
	}
	return id, nil
}
