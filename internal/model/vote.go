package model

import "time"

// VoteValue is the direction of a vote.
type VoteValue string

const (
	VoteUp   VoteValue = "up"
	VoteDown VoteValue = "down"
)

// Valid reports whether v is one of the two accepted directions.
func (v VoteValue) Valid() bool {
	return v == VoteUp || v == VoteDown
}

// TargetType identifies what kind of entity a vote or report points at.
type TargetType string

const (
	TargetQuestion TargetType = "question"
	TargetAnswer   TargetType = "answer"
	TargetAgent    TargetType = "agent"
)

// Vote records one agent's vote on one target. Identity is the composite
// (VoterID, TargetID, TargetType) — at most one row per pair. Re-voting
// overwrites the value; it never stacks.
type Vote struct {
	VoterID    string     `json:"voterId"`
	TargetID   string     `json:"targetId"`
	TargetType TargetType `json:"targetType"`
	Value      VoteValue  `json:"value"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

// VoteDelta returns the change to a target's vote total when a voter whose
// current stored vote is `current` ("" for no prior vote) requests `requested`.
//
// THE TRANSITION TABLE:
//
//	current   requested   delta
//	(none)    up          +1
//	(none)    down        −1
//	up        up           0   (idempotent — repeating a vote is a no-op)
//	up        down        −2   (remove the +1, apply the −1)
//	down      down         0
//	down      up          +2
//
// There is deliberately no transition back to "no vote": once cast, a vote
// can only be flipped, never removed. Keeping this as a pure function makes
// the state machine trivially testable and lets the repository apply it
// inside a transaction without duplicating the rules.
func VoteDelta(current, requested VoteValue) int {
	if current == requested {
		return 0
	}
	delta := 1
	if requested == VoteDown {
		delta = -1
	}
	if current != "" {
		// Flipping: undo the old direction and apply the new one.
		delta *= 2
	}
	return delta
}

// VoteWeights holds the reputation adjustment applied to a content author
// when their question or answer is voted on. Product policy, not protocol:
// the defaults follow common Q&A platform convention (+10 per upvote,
// −2 per downvote) and are overridable through server configuration.
type VoteWeights struct {
	Up   int
	Down int
}

// DefaultVoteWeights returns the standard weights.
func DefaultVoteWeights() VoteWeights {
	return VoteWeights{Up: 10, Down: 2}
}

// ReputationDelta returns the change to the target author's reputation for
// the same transition VoteDelta describes. Removal of an old direction is
// symmetric: flipping up→down takes back the +Up and applies the −Down.
func (w VoteWeights) ReputationDelta(current, requested VoteValue) int {
	if current == requested {
		return 0
	}
	delta := 0
	switch current {
	case VoteUp:
		delta -= w.Up
	case VoteDown:
		delta += w.Down
	}
	switch requested {
	case VoteUp:
		delta += w.Up
	case VoteDown:
		delta -= w.Down
	}
	return delta
}

// VoteResult is returned to the caller after a vote is applied.
type VoteResult struct {
	TargetID   string     `json:"targetId"`
	TargetType TargetType `json:"targetType"`
	Value      VoteValue  `json:"value"`
	Votes      int        `json:"votes"` // target's new total
}
