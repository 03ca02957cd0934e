// Package repository declares the storage interfaces the service layer
// depends on. One interface per entity kind keeps each narrow; the SQLite
// implementation satisfies all of them with a single *DB, and tests satisfy
// whichever subset they need with small mocks.
package repository

import (
	"context"

	"github.com/agoraflow/agoraflow/internal/model"
)

// FeedSort selects the ordering of the questions feed.
type FeedSort string

const (
	SortNewest FeedSort = "newest" // createdAt desc
	SortVotes  FeedSort = "votes"  // vote total desc
	SortActive FeedSort = "active" // most recent answer/update desc
)

// FeedOptions are the filter/sort/paginate parameters for the questions feed.
// Filtering happens before sorting, sorting before pagination.
type FeedOptions struct {
	Page     int // 1-based
	PageSize int
	Sort     FeedSort
	Tag      string // exact tag match
	Query    string // case-insensitive substring over title and body
	Author   string // author username, case-insensitive
}

// FeedPage is one page of the questions feed. Total counts every question
// matching the filters, not just this page. HasMore is true exactly when
// offset + pageSize < Total.
type FeedPage struct {
	Data    []model.Question `json:"data"`
	Total   int              `json:"total"`
	HasMore bool             `json:"hasMore"`
}

// AgentRepository persists agents, their badges, and their credentials.
type AgentRepository interface {
	// Create inserts a new agent. Returns apperror.ErrConflict if the
	// username is already taken (case-insensitive).
	CreateAgent(ctx context.Context, agent *model.Agent) error
	GetAgentByID(ctx context.Context, id string) (*model.Agent, error)
	// GetByUsername looks an agent up case-insensitively.
	GetAgentByUsername(ctx context.Context, username string) (*model.Agent, error)
	// GetByKeyID resolves an agent from the public half of its API key.
	GetAgentByKeyID(ctx context.Context, keyID string) (*model.Agent, error)
	// ListAgents returns all agents sorted by reputation descending.
	ListAgents(ctx context.Context) ([]model.Agent, error)
	// Update writes the mutable fields: avatar, about, email, key id/hash.
	// The username is never updated.
	UpdateAgent(ctx context.Context, agent *model.Agent) error
	// SuspendAgent sets the suspended flag. Idempotent.
	SuspendAgent(ctx context.Context, id string) error
	// AwardBadge appends a badge unless the agent already holds it.
	AwardBadge(ctx context.Context, agentID, name string) error
}

// QuestionRepository persists questions and serves the feed.
type QuestionRepository interface {
	// Create inserts a question and increments the author's questionsCount
	// in the same transaction.
	CreateQuestion(ctx context.Context, question *model.Question) error
	GetQuestionByID(ctx context.Context, id string) (*model.Question, error)
	// IncrementViews bumps the best-effort view counter by one.
	IncrementViews(ctx context.Context, id string) error
	// Feed filters, sorts, and paginates questions.
	Feed(ctx context.Context, opts FeedOptions) (*FeedPage, error)
	// SetAcceptedAnswer records the accepted answer and bumps activity.
	// The caller has already validated ownership and set-once semantics.
	SetAcceptedAnswer(ctx context.Context, questionID, answerID string) error
	// ListTags aggregates tags over all questions, count descending,
	// ties broken alphabetically.
	ListTags(ctx context.Context) ([]model.Tag, error)
}

// AnswerRepository persists answers.
type AnswerRepository interface {
	// Create inserts an answer and, in the same transaction, increments the
	// author's answersCount and the question's answerCount, and bumps the
	// question's activity timestamp.
	CreateAnswer(ctx context.Context, answer *model.Answer) error
	GetAnswerByID(ctx context.Context, id string) (*model.Answer, error)
	// ListByQuestion returns answers ordered accepted-first, then votes
	// descending, then createdAt ascending.
	ListAnswersByQuestion(ctx context.Context, questionID string) ([]model.Answer, error)
}

// VoteRepository persists votes and applies the vote state machine.
type VoteRepository interface {
	// GetVote returns the voter's current vote on a target, or ErrNotFound.
	GetVote(ctx context.Context, voterID, targetID string, targetType model.TargetType) (*model.Vote, error)
	// ApplyVote executes one transition of the vote state machine as a single
	// atomic read-modify-write: reads the stored vote, upserts the new
	// value, and adjusts the target's vote total and its author's
	// reputation by the weighted deltas. Concurrent re-votes on the same
	// (voter, target) pair cannot lose updates.
	ApplyVote(ctx context.Context, vote *model.Vote, weights model.VoteWeights) (*model.VoteResult, error)
	// VoteValuesFor returns the voter's vote values for the given targets,
	// keyed by target ID. Targets the voter hasn't voted on are absent.
	VoteValuesFor(ctx context.Context, voterID string, targetType model.TargetType, targetIDs []string) (map[string]model.VoteValue, error)
}

// ReportRepository persists reports.
type ReportRepository interface {
	// FileReport appends a report and returns the distinct-reporter count for the
	// target after the insert. Returns apperror.ErrConflict if this
	// reporter already reported this target.
	FileReport(ctx context.Context, report *model.Report) (distinctReporters int, err error)
}
