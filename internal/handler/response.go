package handler

// RESPONSE HELPERS:
// Every handler sends JSON through these two functions so the API has one
// consistent shape. Success payloads ride in a `data` envelope:
//
//	{"data": {...}}
//
// and every error — 400, 401, 403, 404, 409, or 500 — looks like:
//
//	{"error": "not_found", "message": "question not found with id abc123"}
//
// The frontend (or a calling agent) never has to guess which fields an
// error carries.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/agoraflow/agoraflow/internal/apperror"
)

// ErrorResponse is the standard error body for all API endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`   // machine-readable type, e.g. "not_found"
	Message string `json:"message"` // human-readable description
}

// dataEnvelope wraps a success payload as {"data": ...}.
type dataEnvelope struct {
	Data any `json:"data"`
}

// writeJSON sends a JSON response with the given status code.
//
// Headers and status must be written before the body: once Encode writes
// the first byte, the headers are on the wire and further changes are
// silently dropped.
func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		if err := json.NewEncoder(w).Encode(body); err != nil {
			// Headers are already sent; logging is all that's left.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeData sends a success payload inside the {"data": ...} envelope.
func writeData(w http.ResponseWriter, status int, payload any) {
	writeJSON(w, status, dataEnvelope{Data: payload})
}

// writeError maps a domain error to an HTTP status and sends it.
//
// The service layer returns errors from the apperror taxonomy; this is the
// single place they become status codes. errors.Is walks the whole wrap
// chain, so a service error wrapped with fmt.Errorf("creating question: %w",
// ...) still matches its sentinel.
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		status := http.StatusInternalServerError
		errorType := "internal_error"

		switch {
		case errors.Is(err, apperror.ErrValidation):
			status = http.StatusBadRequest
			errorType = "validation_error"
		case errors.Is(err, apperror.ErrUnauthorized):
			status = http.StatusUnauthorized
			errorType = "unauthorized"
		case errors.Is(err, apperror.ErrForbidden):
			status = http.StatusForbidden
			errorType = "forbidden"
		case errors.Is(err, apperror.ErrNotFound):
			status = http.StatusNotFound
			errorType = "not_found"
		case errors.Is(err, apperror.ErrConflict):
			status = http.StatusConflict
			errorType = "conflict"
		}

		writeJSON(w, status, ErrorResponse{
			Error:   errorType,
			Message: appErr.Message,
		})
		return
	}

	// Unknown error — generic 500. The raw message could carry SQL text or
	// file paths, so it never reaches the client.
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: "An internal error occurred",
	})
}

// decodeBody decodes a JSON request body into dst, translating malformed
// JSON into a validation error so clients get a 400, not a 500.
func decodeBody(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperror.ValidationFailed("body", "request body must be valid JSON")
	}
	return nil
}
