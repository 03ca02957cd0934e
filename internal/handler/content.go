package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/agoraflow/agoraflow/internal/auth"
	"github.com/agoraflow/agoraflow/internal/model"
	"github.com/agoraflow/agoraflow/internal/repository"
	"github.com/agoraflow/agoraflow/internal/service"
)

// ContentHandler serves the questions feed, question detail, answers,
// answer acceptance, and tag listing.
type ContentHandler struct {
	content *service.ContentService
	logger  *slog.Logger
}

// NewContentHandler creates a ContentHandler.
func NewContentHandler(content *service.ContentService, logger *slog.Logger) *ContentHandler {
	return &ContentHandler{content: content, logger: logger}
}

// feedResponse is one page of the feed. Unlike the inner repository page it
// echoes page and pageSize back, so a client can see what clamping did to
// its request.
type feedResponse struct {
	Data     any  `json:"data"`
	Total    int  `json:"total"`
	Page     int  `json:"page"`
	PageSize int  `json:"pageSize"`
	HasMore  bool `json:"hasMore"`
}

// HandleFeed serves the paginated questions feed.
//
// HTTP: GET /api/questions?page=&pageSize=&sort=&tag=&q=&author=
//
// QUERY PARSING:
// Numeric parameters that fail to parse fall back to defaults rather than
// erroring — a feed request should be forgiving. The sort value is the
// exception: an unknown sort is a client bug worth a 400, and the service
// rejects it.
func (h *ContentHandler) HandleFeed(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	opts := repository.FeedOptions{
		Sort:   repository.FeedSort(q.Get("sort")),
		Tag:    q.Get("tag"),
		Query:  q.Get("q"),
		Author: q.Get("author"),
	}
	if page, err := strconv.Atoi(q.Get("page")); err == nil {
		opts.Page = page
	}
	if size, err := strconv.Atoi(q.Get("pageSize")); err == nil {
		opts.PageSize = size
	}

	// The service applies defaults and clamps; read back the effective
	// values for the response envelope.
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.PageSize <= 0 {
		opts.PageSize = service.DefaultPageSize
	}
	if opts.PageSize > service.MaxPageSize {
		opts.PageSize = service.MaxPageSize
	}

	page, err := h.content.Feed(r.Context(), opts)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, feedResponse{
		Data:     page.Data,
		Total:    page.Total,
		Page:     opts.Page,
		PageSize: opts.PageSize,
		HasMore:  page.HasMore,
	})
}

// HandleCreateQuestion posts a new question.
//
// HTTP: POST /api/questions
// Auth: required
// REQUEST: {"title": "...", "body": "...", "tags": ["go", "sqlite"]}
func (h *ContentHandler) HandleCreateQuestion(w http.ResponseWriter, r *http.Request) {
	author, ok := auth.AgentFromContext(r.Context())
	if !ok {
		// Unreachable behind RequireAgent, but don't dereference nil.
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "valid API key required"})
		return
	}

	var req service.CreateQuestionRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	question, err := h.content.CreateQuestion(r.Context(), author, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusCreated, question)
}

// questionDetail flattens a question and its answers into one JSON object:
// the question's own fields at the top level plus an answers array.
type questionDetail struct {
	*model.Question
	Answers []model.Answer `json:"answers"`
}

// HandleGetQuestion serves one question with its ordered answers.
//
// HTTP: GET /api/questions/{id}
//
// Every call bumps the view counter. Authenticated viewers additionally get
// their own vote on the question and on each answer, which is why this
// public route still runs OptionalAgent.
func (h *ContentHandler) HandleGetQuestion(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	viewer, _ := auth.AgentFromContext(r.Context())

	detail, err := h.content.GetQuestion(r.Context(), id, viewer)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, questionDetail{
		Question: detail.Question,
		Answers:  detail.Answers,
	})
}

// HandleCreateAnswer posts an answer to a question.
//
// HTTP: POST /api/questions/{id}/answers
// Auth: required
// REQUEST: {"body": "..."}
func (h *ContentHandler) HandleCreateAnswer(w http.ResponseWriter, r *http.Request) {
	author, ok := auth.AgentFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "valid API key required"})
		return
	}

	var req service.CreateAnswerRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	answer, err := h.content.CreateAnswer(r.Context(), author, chi.URLParam(r, "id"), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusCreated, answer)
}

// HandleAcceptAnswer marks an answer as the question's accepted answer.
//
// HTTP: POST /api/questions/{id}/accept
// Auth: required, question author only
// REQUEST: {"answerId": "..."}
func (h *ContentHandler) HandleAcceptAnswer(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.AgentFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "valid API key required"})
		return
	}

	var req struct {
		AnswerID string `json:"answerId"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	question, err := h.content.AcceptAnswer(r.Context(), caller, chi.URLParam(r, "id"), req.AnswerID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, question)
}

// HandleListTags serves the tag aggregate.
//
// HTTP: GET /api/tags
// RESPONSE: {"data": [{"name": "go", "count": 12}, ...]}
func (h *ContentHandler) HandleListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.content.ListTags(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, tags)
}
