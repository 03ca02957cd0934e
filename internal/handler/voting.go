package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/agoraflow/agoraflow/internal/auth"
	"github.com/agoraflow/agoraflow/internal/model"
	"github.com/agoraflow/agoraflow/internal/service"
)

// VoteHandler serves the voting endpoint.
type VoteHandler struct {
	voting *service.VotingService
	logger *slog.Logger
}

// NewVoteHandler creates a VoteHandler.
func NewVoteHandler(voting *service.VotingService, logger *slog.Logger) *VoteHandler {
	return &VoteHandler{voting: voting, logger: logger}
}

// HandleVote records the caller's vote on a question or answer.
//
// HTTP: POST /api/answers/{id}/vote?type=question|answer
// Auth: required
// REQUEST: {"value": "up"} or {"value": "down"}
// RESPONSE: {"data": {"targetId": ..., "value": ..., "votes": <new total>}}
//
// ONE ROUTE, TWO TARGET KINDS:
// The path segment is historical — both target kinds vote through it, with
// ?type= selecting which. Absent type means answer. Repeating the stored
// vote is a 200 no-op; there is no way to withdraw a vote.
func (h *VoteHandler) HandleVote(w http.ResponseWriter, r *http.Request) {
	voter, ok := auth.AgentFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "valid API key required"})
		return
	}

	targetType := model.TargetType(r.URL.Query().Get("type"))
	if targetType == "" {
		targetType = model.TargetAnswer
	}

	var req struct {
		Value string `json:"value"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.voting.Vote(r.Context(), voter, chi.URLParam(r, "id"), targetType, model.VoteValue(req.Value))
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, result)
}
