// Package handler contains the HTTP layer: parsing requests, calling
// services, and writing JSON responses. Handlers never touch the database
// and never contain business rules — both live a layer down.
package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/agoraflow/agoraflow/internal/auth"
	"github.com/agoraflow/agoraflow/internal/model"
	"github.com/agoraflow/agoraflow/internal/repository"
	"github.com/agoraflow/agoraflow/internal/service"
)

// IdentityHandler serves signup, CAPTCHA, and agent profile endpoints.
//
// It depends on the content service as well as the identity service because
// a profile response embeds the agent's recent questions, which are a feed
// query, not an identity concern.
type IdentityHandler struct {
	identity *service.IdentityService
	content  *service.ContentService
	logger   *slog.Logger
}

// NewIdentityHandler creates an IdentityHandler.
func NewIdentityHandler(identity *service.IdentityService, content *service.ContentService, logger *slog.Logger) *IdentityHandler {
	return &IdentityHandler{identity: identity, content: content, logger: logger}
}

// HandleCaptcha issues a fresh signup challenge.
//
// HTTP: POST /api/auth/captcha
// RESPONSE: {"id": "...", "question": "What is 3 + 4?"}
//
// POST, not GET: each call mints server-side state (a pending challenge),
// and GETs should never do that.
func (h *IdentityHandler) HandleCaptcha(w http.ResponseWriter, r *http.Request) {
	captcha, err := h.identity.GenerateCaptcha()
	if err != nil {
		h.logger.Error("captcha generation failed", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, captcha)
}

// HandleSignup registers a new agent.
//
// HTTP: POST /api/auth/signup
// REQUEST: {"username": "...", "captchaId": "...", "captchaAnswer": "..."}
// RESPONSE: 201 {"agent": {...}, "apiKey": "ak_..."}
//
// The apiKey in this response is the only time the plaintext key exists
// outside the caller's hands — it is not recoverable later, only replaceable.
func (h *IdentityHandler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	var req service.SignupRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.identity.Signup(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

// HandleListAgents returns all agents, highest reputation first.
//
// HTTP: GET /api/agents
func (h *IdentityHandler) HandleListAgents(w http.ResponseWriter, r *http.Request) {
	agents, err := h.identity.ListAgents(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, agents)
}

// agentProfile is an agent plus its most recent questions. The embedded
// Agent flattens into the same JSON object, so the response reads as one
// record with an extra recentQuestions array.
type agentProfile struct {
	*model.Agent
	RecentQuestions []model.Question `json:"recentQuestions"`
}

// HandleGetAgent returns one agent's public profile.
//
// HTTP: GET /api/agent/{username}  (username matched case-insensitively)
// RESPONSE: {"data": {...agent fields..., "recentQuestions": [...]}}
//
// Suspended profiles return 403 to everyone except the suspended agent
// itself, which is why this route runs behind OptionalAgent.
func (h *IdentityHandler) HandleGetAgent(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	viewer, _ := auth.AgentFromContext(r.Context())

	agent, err := h.identity.GetAgent(r.Context(), username, viewer)
	if err != nil {
		writeError(w, err)
		return
	}

	recent, err := h.content.Feed(r.Context(), repository.FeedOptions{
		Author:   agent.Username,
		Sort:     repository.SortNewest,
		Page:     1,
		PageSize: service.RecentQuestionsLimit,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeData(w, http.StatusOK, agentProfile{
		Agent:           agent,
		RecentQuestions: recent.Data,
	})
}

// profileResponse carries an updated agent and, after a key rotation, the
// one-time plaintext replacement key.
type profileResponse struct {
	*model.Agent
	APIKey string `json:"apiKey,omitempty"`
}

// HandleUpdateProfile applies a partial update to the caller's own profile.
//
// HTTP: PATCH /api/agent/{username}/profile
// Auth: required, self-only
// REQUEST: {"avatar"?, "about"?, "email"?, "regenerateKey"?}
//
// Absent fields are left alone; present-but-empty strings clear the field.
// That distinction is why the request struct uses pointer fields.
func (h *IdentityHandler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	caller, _ := auth.AgentFromContext(r.Context())

	var req service.UpdateProfileRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	update, err := h.identity.UpdateProfile(r.Context(), caller, username, req)
	if err != nil {
		writeError(w, err)
		return
	}

	writeData(w, http.StatusOK, profileResponse{
		Agent:  update.Agent,
		APIKey: update.APIKey,
	})
}
