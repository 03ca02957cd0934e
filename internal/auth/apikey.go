// Package auth — API key generation and verification.
//
// AUTHENTICATION MODEL:
// Every agent authenticates with a single opaque bearer key:
//
//	Authorization: Bearer ak_<keyID>_<secret>
//
// The key has two halves:
//   - keyID:  public, stored in plaintext, used to find the agent row
//   - secret: private, only its bcrypt hash is stored
//
// Storing only the hash means a leaked database does not leak usable keys.
// Splitting ID from secret lets us look the agent up with an indexed equality
// query and then verify the secret with a constant-time bcrypt compare —
// without the split we'd have to bcrypt the presented key against every row.
//
// WHY BCRYPT?
// bcrypt is deliberately slow, which makes brute-forcing stolen hashes
// expensive. It also generates and embeds a random salt, so identical
// secrets never produce identical hashes.
package auth

import (
	"fmt"
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"golang.org/x/crypto/bcrypt"
)

// keyPrefix marks AgoraFlow API keys. A recognisable prefix makes keys easy
// to spot in secret scanners and easy to strip in logs.
const keyPrefix = "ak"

// defaultCost is the bcrypt work factor for API key secrets.
//
// API keys are verified on every authenticated request, so we use cost 10
// rather than the 12 recommended for login passwords: keys are 21 characters
// of random alphabet (~126 bits of entropy), far beyond brute-force reach
// even at a lower cost, and the verification sits on the hot path.
const defaultCost = 10

// KeyService generates and verifies API keys.
//
// The cost is injectable so tests can use bcrypt.MinCost and avoid paying
// ~100ms per hash; see NewKeyServiceForTest.
type KeyService struct {
	cost int
}

// NewKeyService creates a KeyService with the production bcrypt cost.
func NewKeyService() *KeyService {
	return &KeyService{cost: defaultCost}
}

// NewKeyServiceForTest creates a KeyService with the given (low) bcrypt cost.
// Do NOT use in production.
func NewKeyServiceForTest(cost int) *KeyService {
	return &KeyService{cost: cost}
}

// Generate creates a fresh API key.
//
// Returns:
//   - plaintext: the full "ak_<id>_<secret>" key — shown to the caller
//     exactly once, never persisted
//   - keyID: the public lookup handle to store on the agent
//   - hash: the bcrypt digest of the secret to store on the agent
func (k *KeyService) Generate() (plaintext, keyID, hash string, err error) {
	// nanoid's default alphabet is URL-safe but includes '_' and '-';
	// '_' is our field separator, so use an explicit alphabet without it.
	const alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

	keyID, err = gonanoid.Generate(alphabet, 12)
	if err != nil {
		return "", "", "", fmt.Errorf("auth: generating key id: %w", err)
	}
	secret, err := gonanoid.Generate(alphabet, 21)
	if err != nil {
		return "", "", "", fmt.Errorf("auth: generating key secret: %w", err)
	}

	digest, err := bcrypt.GenerateFromPassword([]byte(secret), k.cost)
	if err != nil {
		return "", "", "", fmt.Errorf("auth: hashing key secret: %w", err)
	}

	plaintext = fmt.Sprintf("%s_%s_%s", keyPrefix, keyID, secret)
	return plaintext, keyID, string(digest), nil
}

// ParseKey splits a presented bearer key into its keyID and secret halves.
// Returns an error for anything that is not shaped like an AgoraFlow key.
func ParseKey(presented string) (keyID, secret string, err error) {
	parts := strings.Split(presented, "_")
	if len(parts) != 3 || parts[0] != keyPrefix || parts[1] == "" || parts[2] == "" {
		return "", "", fmt.Errorf("auth: malformed API key")
	}
	return parts[1], parts[2], nil
}

// Verify checks a presented secret against a stored bcrypt hash.
// Returns nil on match. bcrypt's comparison is constant-time, so response
// timing does not leak how close a guess was.
func (k *KeyService) Verify(hash, secret string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)); err != nil {
		return fmt.Errorf("auth: invalid API key")
	}
	return nil
}
