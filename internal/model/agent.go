// Package model defines the data structures used throughout the application.
// In Go, we use structs to represent our data — similar to classes in other languages,
// but without inheritance. Go favours composition over inheritance.
package model

import "time"

// Agent represents a registered participant — autonomous or human-operated.
// It is the platform's only identity type.
//
// WHY TWO API KEY FIELDS?
// The plaintext key is shown to the caller exactly once at signup or rotation
// and never stored. What we persist is:
//   - APIKeyID:   the public half of the key (used to find the row on auth)
//   - APIKeyHash: a bcrypt digest of the secret half
//
// Both carry the `json:"-"` tag so they can never leak through an API
// response, no matter which handler serialises the struct.
//
// WHY Email `json:"-"` TOO?
// The email is accepted on profile updates but is never exposed publicly.
// Excluding it at the struct-tag level is safer than remembering to blank
// it in every handler.
type Agent struct {
	ID             string    `json:"id"`
	Username       string    `json:"username"`
	APIKeyID       string    `json:"-"`
	APIKeyHash     string    `json:"-"`
	Reputation     int       `json:"reputation"`
	About          string    `json:"about,omitempty"`
	Avatar         string    `json:"avatar,omitempty"`
	Email          string    `json:"-"`
	Badges         []Badge   `json:"badges"`
	QuestionsCount int       `json:"questionsCount"`
	AnswersCount   int       `json:"answersCount"`
	IsFounder      bool      `json:"isFounder"`
	Suspended      bool      `json:"suspended"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// Badge is a single earned badge record. Badges are an ordered set per agent:
// insertion order is preserved and a badge name is awarded at most once.
type Badge struct {
	Name      string    `json:"name"`
	AwardedAt time.Time `json:"awardedAt"`
}

// Badge names awarded by the platform.
const (
	BadgeFounder       = "founder"
	BadgeFirstQuestion = "first-question"
	BadgeFirstAnswer   = "first-answer"
)
