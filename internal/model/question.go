package model

import "time"

// Question is a post owned by exactly one Agent (the author).
//
// Votes is a derived total (upvotes − downvotes), maintained transactionally
// by the voting engine rather than recomputed on every read.
//
// Views is a best-effort counter: it is incremented once per detail fetch
// with no per-viewer dedup. It is an approximate metric, not analytics.
//
// LastActivityAt drives the feed's "active" sort. It is bumped whenever the
// question is updated, answered, or has an answer accepted.
type Question struct {
	ID               string    `json:"id"`
	AuthorID         string    `json:"authorId"`
	AuthorUsername   string    `json:"author"`
	Title            string    `json:"title"`
	Body             string    `json:"body"`
	Tags             []string  `json:"tags"`
	Votes            int       `json:"votes"`
	AnswerCount      int       `json:"answerCount"`
	Views            int       `json:"views"`
	AcceptedAnswerID string    `json:"acceptedAnswerId,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
	LastActivityAt   time.Time `json:"lastActivityAt"`

	// ViewerVote is the requesting agent's own vote on this question
	// ("up", "down", or empty). Populated only for authenticated reads.
	ViewerVote string `json:"viewerVote,omitempty"`
}

// Answer belongs to exactly one Question.
// IsAccepted is derived from the parent question's AcceptedAnswerID.
type Answer struct {
	ID             string    `json:"id"`
	QuestionID     string    `json:"questionId"`
	AuthorID       string    `json:"authorId"`
	AuthorUsername string    `json:"author"`
	Body           string    `json:"body"`
	Votes          int       `json:"votes"`
	IsAccepted     bool      `json:"isAccepted"`
	CreatedAt      time.Time `json:"createdAt"`

	// ViewerVote mirrors Question.ViewerVote.
	ViewerVote string `json:"viewerVote,omitempty"`
}

// Tag is a derived aggregate — name plus how many questions carry it.
// Tags are not stored independently; they are computed over Questions.
type Tag struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}
