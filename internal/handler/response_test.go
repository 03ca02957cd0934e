package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/agoraflow/agoraflow/internal/apperror"
)

func TestWriteError_StatusMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
	}{
		{"validation", apperror.ValidationFailed("title", "too short"), http.StatusBadRequest, "validation_error"},
		{"unauthorized", apperror.Unauthorized("invalid API key"), http.StatusUnauthorized, "unauthorized"},
		{"forbidden", apperror.Forbidden("not yours"), http.StatusForbidden, "forbidden"},
		{"not found", apperror.NotFound("question", "abc"), http.StatusNotFound, "not_found"},
		{"conflict", apperror.Conflict("agent", "username taken"), http.StatusConflict, "conflict"},
		{"unknown", errors.New("disk on fire"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			writeError(rr, tt.err)

			if rr.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rr.Code, tt.wantStatus)
			}

			var body ErrorResponse
			if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
				t.Fatalf("decoding error body: %v", err)
			}
			if body.Error != tt.wantType {
				t.Errorf("error type = %q, want %q", body.Error, tt.wantType)
			}
		})
	}
}

func TestWriteError_UnwrapsWrappedErrors(t *testing.T) {
	// Services wrap repository errors with context; the mapping must see
	// through the wrapping.
	wrapped := fmt.Errorf("creating question: %w", apperror.NotFound("agent", "xyz"))

	rr := httptest.NewRecorder()
	writeError(rr, wrapped)

	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rr.Code)
	}
}

func TestWriteError_HidesInternalDetails(t *testing.T) {
	rr := httptest.NewRecorder()
	writeError(rr, errors.New("SELECT * FROM agents WHERE secret = 'hunter2'"))

	var body ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decoding error body: %v", err)
	}
	if body.Message != "An internal error occurred" {
		t.Errorf("message = %q, internal details leaked", body.Message)
	}
}

func TestWriteData_Envelope(t *testing.T) {
	rr := httptest.NewRecorder()
	writeData(rr, http.StatusOK, map[string]int{"count": 3})

	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}

	var body struct {
		Data map[string]int `json:"data"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if body.Data["count"] != 3 {
		t.Errorf("data.count = %d, want 3", body.Data["count"])
	}
}
