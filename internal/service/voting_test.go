package service

import (
	"context"
	"errors"
	"testing"

	"github.com/agoraflow/agoraflow/internal/apperror"
	"github.com/agoraflow/agoraflow/internal/model"
)

type votingFixture struct {
	svc       *VotingService
	agents    *mockAgents
	questions *mockQuestions
	answers   *mockAnswers
	votes     *mockVotes
}

func newVotingFixture() *votingFixture {
	f := &votingFixture{
		agents:    newMockAgents(),
		questions: newMockQuestions(),
		answers:   newMockAnswers(),
		votes:     newMockVotes(),
	}
	f.svc = NewVotingService(f.votes, f.questions, f.answers, model.DefaultVoteWeights(), testLogger())
	return f
}

func TestVote(t *testing.T) {
	f := newVotingFixture()
	ctx := context.Background()
	author := f.agents.add(&model.Agent{Username: "author"})
	voter := f.agents.add(&model.Agent{Username: "voter"})
	question := f.questions.add(&model.Question{AuthorID: author.ID, Title: "Q"})
	answer := f.answers.add(&model.Answer{QuestionID: question.ID, AuthorID: author.ID})

	t.Run("question upvote", func(t *testing.T) {
		result, err := f.svc.Vote(ctx, voter, question.ID, model.TargetQuestion, model.VoteUp)
		if err != nil {
			t.Fatalf("Vote() error = %v", err)
		}
		if result.Value != model.VoteUp {
			t.Errorf("Value = %q, want up", result.Value)
		}
		if len(f.votes.applied) != 1 {
			t.Fatalf("len(applied) = %d, want 1", len(f.votes.applied))
		}
		if f.votes.applied[0].VoterID != voter.ID {
			t.Errorf("applied VoterID = %q, want %q", f.votes.applied[0].VoterID, voter.ID)
		}
	})

	t.Run("answer downvote", func(t *testing.T) {
		if _, err := f.svc.Vote(ctx, voter, answer.ID, model.TargetAnswer, model.VoteDown); err != nil {
			t.Fatalf("Vote(answer) error = %v", err)
		}
	})

	t.Run("self vote forbidden", func(t *testing.T) {
		_, err := f.svc.Vote(ctx, author, question.ID, model.TargetQuestion, model.VoteUp)
		if !errors.Is(err, apperror.ErrForbidden) {
			t.Errorf("Vote(own question) error = %v, want ErrForbidden", err)
		}
		_, err = f.svc.Vote(ctx, author, answer.ID, model.TargetAnswer, model.VoteUp)
		if !errors.Is(err, apperror.ErrForbidden) {
			t.Errorf("Vote(own answer) error = %v, want ErrForbidden", err)
		}
	})

	t.Run("invalid value", func(t *testing.T) {
		_, err := f.svc.Vote(ctx, voter, question.ID, model.TargetQuestion, "sideways")
		if !errors.Is(err, apperror.ErrValidation) {
			t.Errorf("Vote(sideways) error = %v, want ErrValidation", err)
		}
	})

	t.Run("invalid target type", func(t *testing.T) {
		_, err := f.svc.Vote(ctx, voter, question.ID, model.TargetAgent, model.VoteUp)
		if !errors.Is(err, apperror.ErrValidation) {
			t.Errorf("Vote(agent target) error = %v, want ErrValidation", err)
		}
	})

	t.Run("target not found", func(t *testing.T) {
		_, err := f.svc.Vote(ctx, voter, "missing", model.TargetQuestion, model.VoteUp)
		if !errors.Is(err, apperror.ErrNotFound) {
			t.Errorf("Vote(missing) error = %v, want ErrNotFound", err)
		}
	})

	t.Run("suspended voter rejected", func(t *testing.T) {
		banned := f.agents.add(&model.Agent{Username: "banned", Suspended: true})
		_, err := f.svc.Vote(ctx, banned, question.ID, model.TargetQuestion, model.VoteUp)
		if !errors.Is(err, apperror.ErrForbidden) {
			t.Errorf("Vote(suspended) error = %v, want ErrForbidden", err)
		}
	})
}
