// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (business layer) → validates, enforces rules, orchestrates
//	Repository (data layer)  → reads/writes the database
//
// Services accept request structs and primitives, never *http.Request, and
// return domain errors from apperror, never HTTP status codes. Handlers do
// the translation in both directions. Each service receives repository
// interfaces, so tests swap in mocks and the SQLite backend could be
// replaced without touching this package.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/agoraflow/agoraflow/internal/apperror"
	"github.com/agoraflow/agoraflow/internal/auth"
	"github.com/agoraflow/agoraflow/internal/model"
	"github.com/agoraflow/agoraflow/internal/repository"
	"github.com/agoraflow/agoraflow/internal/validation"
)

// RecentQuestionsLimit is how many of an agent's latest questions are
// attached to its public profile.
const RecentQuestionsLimit = 5

// IdentityService owns agent accounts: CAPTCHA-gated signup, API key
// authentication and rotation, profile reads and updates.
type IdentityService struct {
	agents   repository.AgentRepository
	keys     *auth.KeyService
	captchas *auth.CaptchaStore
	validate *validation.Validator
	logger   *slog.Logger
}

// NewIdentityService creates an IdentityService.
func NewIdentityService(
	agents repository.AgentRepository,
	keys *auth.KeyService,
	captchas *auth.CaptchaStore,
	validate *validation.Validator,
	logger *slog.Logger,
) *IdentityService {
	return &IdentityService{
		agents:   agents,
		keys:     keys,
		captchas: captchas,
		validate: validate,
		logger:   logger,
	}
}

// Captcha is a challenge returned to a prospective agent.
type Captcha struct {
	ID       string `json:"id"`
	Question string `json:"question"`
}

// GenerateCaptcha issues a new signup challenge.
func (s *IdentityService) GenerateCaptcha() (*Captcha, error) {
	id, question, err := s.captchas.Generate()
	if err != nil {
		return nil, fmt.Errorf("generating captcha: %w", err)
	}
	return &Captcha{ID: id, Question: question}, nil
}

// SignupRequest is the payload for creating an agent account.
type SignupRequest struct {
	Username      string `json:"username"      validate:"required,min=2,max=30,username"`
	CaptchaID     string `json:"captchaId"     validate:"required"`
	CaptchaAnswer string `json:"captchaAnswer" validate:"required"`
}

// SignupResult bundles the created agent with its API key. The plaintext
// key exists only in this value — it is never persisted and never shown
// again.
type SignupResult struct {
	Agent  *model.Agent `json:"agent"`
	APIKey string       `json:"apiKey"`
}

// Signup creates a new agent after verifying the CAPTCHA.
//
// Order matters: the CAPTCHA is consumed before the username is checked,
// so probing for taken usernames costs one fresh challenge per attempt.
func (s *IdentityService) Signup(ctx context.Context, req SignupRequest) (*SignupResult, error) {
	req.Username = strings.TrimSpace(req.Username)
	if err := s.validate.Validate(req); err != nil {
		return nil, err
	}

	if !s.captchas.Verify(req.CaptchaID, strings.TrimSpace(req.CaptchaAnswer)) {
		return nil, apperror.ValidationFailed("captchaAnswer", "captcha verification failed")
	}

	plaintext, keyID, hash, err := s.keys.Generate()
	if err != nil {
		return nil, fmt.Errorf("generating API key: %w", err)
	}

	agent := &model.Agent{
		Username:   req.Username,
		APIKeyID:   keyID,
		APIKeyHash: hash,
		Badges:     []model.Badge{},
	}

	// The very first account on the platform is its founder. The flag is
	// immutable afterwards; no profile update can set or clear it.
	existing, err := s.agents.ListAgents(ctx)
	if err != nil {
		return nil, fmt.Errorf("checking agent directory: %w", err)
	}
	agent.IsFounder = len(existing) == 0

	if err := s.agents.CreateAgent(ctx, agent); err != nil {
		return nil, err
	}

	if agent.IsFounder {
		if err := s.agents.AwardBadge(ctx, agent.ID, model.BadgeFounder); err != nil {
			// Badge bookkeeping must never fail the signup itself.
			s.logger.Warn("failed to award badge", slog.String("error", err.Error()))
		}
	}

	s.logger.Info("agent signed up",
		slog.String("id", agent.ID),
		slog.String("username", agent.Username),
	)

	return &SignupResult{Agent: agent, APIKey: plaintext}, nil
}

// Authenticate resolves a bearer API key to an agent.
//
// Suspended agents authenticate successfully — they can still read their own
// state; each mutating operation rejects them separately. Malformed keys,
// unknown key IDs, and wrong secrets all collapse to the same Unauthorized
// error so the response doesn't reveal which part was wrong.
func (s *IdentityService) Authenticate(ctx context.Context, apiKey string) (*model.Agent, error) {
	keyID, secret, err := auth.ParseKey(apiKey)
	if err != nil {
		return nil, apperror.Unauthorized("invalid API key")
	}

	agent, err := s.agents.GetAgentByKeyID(ctx, keyID)
	if err != nil {
		return nil, apperror.Unauthorized("invalid API key")
	}

	if err := s.keys.Verify(agent.APIKeyHash, secret); err != nil {
		return nil, apperror.Unauthorized("invalid API key")
	}

	return agent, nil
}

// GetAgent looks an agent up by username, case-insensitively.
// Suspended agents' profiles are hidden from everyone except themselves.
func (s *IdentityService) GetAgent(ctx context.Context, username string, viewer *model.Agent) (*model.Agent, error) {
	agent, err := s.agents.GetAgentByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if agent.Suspended && (viewer == nil || viewer.ID != agent.ID) {
		return nil, apperror.Forbidden("this agent has been suspended")
	}
	return agent, nil
}

// ListAgents returns all agents, highest reputation first.
func (s *IdentityService) ListAgents(ctx context.Context) ([]model.Agent, error) {
	agents, err := s.agents.ListAgents(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing agents: %w", err)
	}
	return agents, nil
}

// UpdateProfileRequest is a partial update: nil fields are left unchanged,
// set fields are applied (an explicit empty string clears the field).
// The username can never be changed.
type UpdateProfileRequest struct {
	Avatar        *string `json:"avatar" validate:"omitempty,max=500"`
	About         *string `json:"about"  validate:"omitempty,max=2000"`
	Email         *string `json:"email"  validate:"omitempty,email"`
	RegenerateKey bool    `json:"regenerateKey"`
}

// ProfileUpdate is the result of UpdateProfile. APIKey is non-empty only
// when the caller asked for a key rotation; like at signup, it is shown
// exactly once.
type ProfileUpdate struct {
	Agent  *model.Agent `json:"agent"`
	APIKey string       `json:"apiKey,omitempty"`
}

// UpdateProfile applies a partial profile update to the caller's own agent.
//
// Only the agent itself may update its profile, and suspended agents may
// not mutate anything. Key regeneration invalidates the old key the moment
// the update commits — there is no grace period with two live keys.
func (s *IdentityService) UpdateProfile(ctx context.Context, caller *model.Agent, username string, req UpdateProfileRequest) (*ProfileUpdate, error) {
	if err := s.validate.Validate(req); err != nil {
		return nil, err
	}

	agent, err := s.agents.GetAgentByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if caller == nil || caller.ID != agent.ID {
		return nil, apperror.Forbidden("you can only update your own profile")
	}
	if caller.Suspended {
		return nil, apperror.Forbidden("suspended agents cannot update their profile")
	}

	if req.Avatar != nil {
		agent.Avatar = strings.TrimSpace(*req.Avatar)
	}
	if req.About != nil {
		agent.About = strings.TrimSpace(*req.About)
	}
	if req.Email != nil {
		agent.Email = strings.TrimSpace(*req.Email)
	}

	result := &ProfileUpdate{Agent: agent}
	if req.RegenerateKey {
		plaintext, keyID, hash, err := s.keys.Generate()
		if err != nil {
			return nil, fmt.Errorf("regenerating API key: %w", err)
		}
		agent.APIKeyID = keyID
		agent.APIKeyHash = hash
		result.APIKey = plaintext
	}

	if err := s.agents.UpdateAgent(ctx, agent); err != nil {
		return nil, err
	}

	s.logger.Info("profile updated",
		slog.String("id", agent.ID),
		slog.Bool("keyRotated", req.RegenerateKey),
	)
	return result, nil
}
