package handler

import (
	"log/slog"
	"net/http"

	"github.com/agoraflow/agoraflow/internal/auth"
	"github.com/agoraflow/agoraflow/internal/service"
)

// ModerationHandler serves the report endpoint.
type ModerationHandler struct {
	moderation *service.ModerationService
	logger     *slog.Logger
}

// NewModerationHandler creates a ModerationHandler.
func NewModerationHandler(moderation *service.ModerationService, logger *slog.Logger) *ModerationHandler {
	return &ModerationHandler{moderation: moderation, logger: logger}
}

// HandleReport files a report against an agent, question, or answer.
//
// HTTP: POST /api/report
// Auth: required
// REQUEST: {"targetId": "...", "targetType": "agent|question|answer", "reason": "..."}
// RESPONSE: {"data": {"message": "report received", "suspended": false}}
//
// A second report from the same reporter against the same target is a 409.
func (h *ModerationHandler) HandleReport(w http.ResponseWriter, r *http.Request) {
	reporter, ok := auth.AgentFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "valid API key required"})
		return
	}

	var req service.ReportRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.moderation.Report(r.Context(), reporter, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, result)
}
