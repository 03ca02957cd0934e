// Package auth — CAPTCHA challenges for signup.
//
// Signup is the only unauthenticated mutating endpoint, so it is gated by a
// small arithmetic puzzle: human-solvable, but enough friction to stop naive
// scripted account farming. Challenges are:
//
//   - short-lived: expiry is checked against the wall clock at verification
//     time, so no background sweeper goroutine is needed
//   - single-use: a challenge is deleted on its first Verify call whether the
//     answer was right or wrong, which blocks answer brute-forcing
package auth

import (
	"fmt"
	"math/rand"
	"strconv"
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// DefaultCaptchaTTL is how long a challenge stays answerable.
const DefaultCaptchaTTL = 5 * time.Minute

// maxPending caps stored challenges so an attacker can't grow the map
// without bound by requesting challenges and never answering them.
// When full, expired entries are swept; if still full, oldest requests lose.
const maxPending = 10000

type challenge struct {
	answer    int
	expiresAt time.Time
}

// CaptchaStore issues and verifies arithmetic challenges.
//
// All state lives in a mutex-guarded map — challenges are ephemeral
// single-process state, not durable data, so they don't belong in the
// database. The clock is injectable for expiry tests.
type CaptchaStore struct {
	mu       sync.Mutex
	pending  map[string]challenge
	ttl      time.Duration
	now      func() time.Time
	randmath *rand.Rand
}

// NewCaptchaStore creates a store with the given challenge lifetime.
// A non-positive ttl falls back to DefaultCaptchaTTL.
func NewCaptchaStore(ttl time.Duration) *CaptchaStore {
	if ttl <= 0 {
		ttl = DefaultCaptchaTTL
	}
	return &CaptchaStore{
		pending:  make(map[string]challenge),
		ttl:      ttl,
		now:      time.Now,
		randmath: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Generate creates a new challenge and returns its id and human-readable
// question, e.g. "What is 7 + 4?".
func (c *CaptchaStore) Generate() (id, question string, err error) {
	id, err = gonanoid.New()
	if err != nil {
		return "", "", fmt.Errorf("auth: generating captcha id: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	a := c.randmath.Intn(20) + 1
	b := c.randmath.Intn(20) + 1
	var answer int
	switch c.randmath.Intn(3) {
	case 0:
		question = fmt.Sprintf("What is %d + %d?", a, b)
		answer = a + b
	case 1:
		// Keep subtraction results non-negative — friendlier to solve.
		if a < b {
			a, b = b, a
		}
		question = fmt.Sprintf("What is %d - %d?", a, b)
		answer = a - b
	default:
		a = c.randmath.Intn(9) + 2
		b = c.randmath.Intn(9) + 2
		question = fmt.Sprintf("What is %d * %d?", a, b)
		answer = a * b
	}

	if len(c.pending) >= maxPending {
		c.sweepLocked()
	}
	if len(c.pending) >= maxPending {
		return "", "", fmt.Errorf("auth: too many pending captcha challenges")
	}

	c.pending[id] = challenge{
		answer:    answer,
		expiresAt: c.now().Add(c.ttl),
	}
	return id, question, nil
}

// Verify consumes the challenge with the given id and reports whether the
// answer was correct. It returns false for an unknown id, an expired
// challenge, or a wrong answer. The challenge is removed in every case —
// a caller gets exactly one attempt per challenge.
func (c *CaptchaStore) Verify(id, answer string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch, ok := c.pending[id]
	if !ok {
		return false
	}
	delete(c.pending, id) // single-use, success or failure

	if c.now().After(ch.expiresAt) {
		return false
	}

	got, err := strconv.Atoi(answer)
	if err != nil {
		return false
	}
	return got == ch.answer
}

// sweepLocked drops expired challenges. Caller must hold c.mu.
func (c *CaptchaStore) sweepLocked() {
	now := c.now()
	for id, ch := range c.pending {
		if now.After(ch.expiresAt) {
			delete(c.pending, id)
		}
	}
}
