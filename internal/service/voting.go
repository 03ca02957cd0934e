package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/agoraflow/agoraflow/internal/apperror"
	"github.com/agoraflow/agoraflow/internal/model"
	"github.com/agoraflow/agoraflow/internal/repository"
)

// VotingService applies votes to questions and answers and keeps author
// reputation in step. The transition rules themselves live in
// model.VoteDelta / VoteWeights.ReputationDelta; the repository applies them
// atomically. This layer enforces the policy around them: who may vote,
// and on what.
type VotingService struct {
	votes     repository.VoteRepository
	questions repository.QuestionRepository
	answers   repository.AnswerRepository
	weights   model.VoteWeights
	logger    *slog.Logger
}

// NewVotingService creates a VotingService with the given reputation weights.
func NewVotingService(
	votes repository.VoteRepository,
	questions repository.QuestionRepository,
	answers repository.AnswerRepository,
	weights model.VoteWeights,
	logger *slog.Logger,
) *VotingService {
	return &VotingService{
		votes:     votes,
		questions: questions,
		answers:   answers,
		weights:   weights,
		logger:    logger,
	}
}

// Vote records the voter's vote on a target.
//
// Policy enforced here:
//   - suspended agents cannot vote
//   - agents cannot vote on their own content (SelfVoteForbidden)
//   - repeating the currently stored value is an accepted no-op; there is
//     deliberately no operation that removes a vote entirely
func (s *VotingService) Vote(ctx context.Context, voter *model.Agent, targetID string, targetType model.TargetType, value model.VoteValue) (*model.VoteResult, error) {
	if voter.Suspended {
		return nil, apperror.Forbidden("suspended agents cannot vote")
	}
	if !value.Valid() {
		return nil, apperror.ValidationFailed("value", `value must be "up" or "down"`)
	}

	// Resolve the target's author — both the existence check (404 for a
	// missing target) and the self-vote guard need it.
	var authorID string
	switch targetType {
	case model.TargetQuestion:
		question, err := s.questions.GetQuestionByID(ctx, targetID)
		if err != nil {
			return nil, err
		}
		authorID = question.AuthorID
	case model.TargetAnswer:
		answer, err := s.answers.GetAnswerByID(ctx, targetID)
		if err != nil {
			return nil, err
		}
		authorID = answer.AuthorID
	default:
		return nil, apperror.ValidationFailed("type",
			`vote target type must be "question" or "answer"`)
	}

	if authorID == voter.ID {
		return nil, apperror.Forbidden("you cannot vote on your own content")
	}

	result, err := s.votes.ApplyVote(ctx, &model.Vote{
		VoterID:    voter.ID,
		TargetID:   targetID,
		TargetType: targetType,
		Value:      value,
	}, s.weights)
	if err != nil {
		return nil, fmt.Errorf("applying vote: %w", err)
	}

	s.logger.Info("vote recorded",
		slog.String("voter", voter.ID),
		slog.String("target", targetID),
		slog.String("type", string(targetType)),
		slog.String("value", string(value)),
		slog.Int("total", result.Votes),
	)
	return result, nil
}
