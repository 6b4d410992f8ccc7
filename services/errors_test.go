package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteErrorStatusMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   string
	}{
		{
			name:       "validation error maps to 400",
			err:        NewValidationError("name is required"),
			wantStatus: http.StatusBadRequest,
			wantBody:   "name is required",
		},
		{
			name:       "not found error maps to 404",
			err:        NewNotFoundError("agent", "abc"),
			wantStatus: http.StatusNotFound,
			wantBody:   "agent not found: abc",
		},
		{
			name:       "duplicate error maps to 409",
			err:        NewDuplicateError("user", "a@example.com"),
			wantStatus: http.StatusConflict,
			wantBody:   "user already exists: a@example.com",
		},
		{
			name:       "external service error maps to 502",
			err:        NewExternalServiceError("gemini", errors.New("timeout")),
			wantStatus: http.StatusBadGateway,
			wantBody:   "gemini unavailable",
		},
		{
			name:       "unknown error maps to 500",
			err:        errors.New("database exploded"),
			wantStatus: http.StatusInternalServerError,
			wantBody:   "Internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteError(rec, tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantBody, body["error"])
		})
	}
}

func TestWriteErrorUnwrapsWrappedErrors(t *testing.T) {
	wrapped := fmt.Errorf("starting run: %w", NewNotFoundError("session", "s1"))

	rec := httptest.NewRecorder()
	WriteError(rec, wrapped)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWriteErrorHidesInternalDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, errors.New("pq: connection refused host=10.0.0.5"))

	assert.NotContains(t, rec.Body.String(), "10.0.0.5")
}
