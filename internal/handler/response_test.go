package handler

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/loanserve/backend/internal/apperror"
	"github.com/stretchr/testify/assert"
)

func TestRespondJSON(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	respondJSON(w, 200, map[string]string{"ok": "yes"})

	assert.Equal(t, 200, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"ok":"yes"}`, w.Body.String())
}

func TestRespondJSON_NilBody(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	respondJSON(w, 204, nil)

	assert.Equal(t, 204, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestRespondServiceError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		err        error
		wantCode   int
		wantError  string
		wantField  string
	}{
		{
			name:      "validation error carries field",
			err:       apperror.ValidationError("email", "must be a valid email address"),
			wantCode:  400,
			wantError: "must be a valid email address",
			wantField: "email",
		},
		{
			name:      "not found",
			err:       apperror.NotFound("notification rule"),
			wantCode:  404,
			wantError: "notification rule not found",
		},
		{
			name:      "conflict",
			err:       apperror.Conflict("rule already exists"),
			wantCode:  409,
			wantError: "rule already exists",
		},
		{
			name:      "unknown errors are opaque",
			err:       errors.New("pq: connection refused"),
			wantCode:  500,
			wantError: "an internal error occurred",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			w := httptest.NewRecorder()
			respondServiceError(w, tt.err)

			assert.Equal(t, tt.wantCode, w.Code)

			var resp ErrorResponse
			assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantError, resp.Error)
			assert.Equal(t, tt.wantField, resp.Field)
		})
	}
}

func TestParseID(t *testing.T) {
	t.Parallel()

	id, err := parseID("42")
	assert.NoError(t, err)
	assert.Equal(t, int64(42), id)

	for _, bad := range []string{"", "abc", "0", "-1", "1.5"} {
		_, err := parseID(bad)
		assert.Error(t, err, bad)
	}
}
