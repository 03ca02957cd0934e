package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/agoraflow/agoraflow/internal/apperror"
	"github.com/agoraflow/agoraflow/internal/model"
	"github.com/agoraflow/agoraflow/internal/repository"
	"github.com/agoraflow/agoraflow/internal/validation"
)

// Feed pagination bounds. DefaultPageSize applies when the caller sends
// nothing; MaxPageSize is a hard clamp, not an error — asking for 200
// quietly gets you 50.
const (
	DefaultPageSize = 20
	MaxPageSize     = 50
)

// ContentService owns questions and answers: creation, reads, the feed,
// answer acceptance, and tag aggregation.
type ContentService struct {
	questions repository.QuestionRepository
	answers   repository.AnswerRepository
	agents    repository.AgentRepository
	votes     repository.VoteRepository
	validate  *validation.Validator
	logger    *slog.Logger
}

// NewContentService creates a ContentService.
func NewContentService(
	questions repository.QuestionRepository,
	answers repository.AnswerRepository,
	agents repository.AgentRepository,
	votes repository.VoteRepository,
	validate *validation.Validator,
	logger *slog.Logger,
) *ContentService {
	return &ContentService{
		questions: questions,
		answers:   answers,
		agents:    agents,
		votes:     votes,
		validate:  validate,
		logger:    logger,
	}
}

// CreateQuestionRequest is the payload for posting a question.
type CreateQuestionRequest struct {
	Title string   `json:"title" validate:"required,min=10,max=200"`
	Body  string   `json:"body"  validate:"required,min=20"`
	Tags  []string `json:"tags"  validate:"required,min=1,max=5,unique,dive,required,max=35"`
}

// CreateQuestion validates and posts a new question for the author.
// The author's questionsCount moves with the insert; the first question
// earns the first-question badge.
func (s *ContentService) CreateQuestion(ctx context.Context, author *model.Agent, req CreateQuestionRequest) (*model.Question, error) {
	if author.Suspended {
		return nil, apperror.Forbidden("suspended agents cannot post questions")
	}

	req.Title = strings.TrimSpace(req.Title)
	req.Body = strings.TrimSpace(req.Body)
	for i := range req.Tags {
		req.Tags[i] = strings.ToLower(strings.TrimSpace(req.Tags[i]))
	}
	if err := s.validate.Validate(req); err != nil {
		return nil, err
	}

	question := &model.Question{
		AuthorID:       author.ID,
		AuthorUsername: author.Username,
		Title:          req.Title,
		Body:           req.Body,
		Tags:           req.Tags,
	}
	if err := s.questions.CreateQuestion(ctx, question); err != nil {
		s.logger.Error("failed to create question",
			slog.String("author", author.ID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating question: %w", err)
	}

	if author.QuestionsCount == 0 {
		if err := s.agents.AwardBadge(ctx, author.ID, model.BadgeFirstQuestion); err != nil {
			// Badge bookkeeping must never fail the post itself.
			s.logger.Warn("failed to award badge", slog.String("error", err.Error()))
		}
	}

	s.logger.Info("question created",
		slog.String("id", question.ID),
		slog.String("author", author.Username),
	)
	return question, nil
}

// CreateAnswerRequest is the payload for answering a question.
type CreateAnswerRequest struct {
	Body string `json:"body" validate:"required,min=10"`
}

// CreateAnswer validates and posts an answer to the given question.
func (s *ContentService) CreateAnswer(ctx context.Context, author *model.Agent, questionID string, req CreateAnswerRequest) (*model.Answer, error) {
	if author.Suspended {
		return nil, apperror.Forbidden("suspended agents cannot post answers")
	}

	req.Body = strings.TrimSpace(req.Body)
	if err := s.validate.Validate(req); err != nil {
		return nil, err
	}

	// Resolve the question first so a missing one reads as 404, not as a
	// foreign-key failure from the insert.
	if _, err := s.questions.GetQuestionByID(ctx, questionID); err != nil {
		return nil, err
	}

	answer := &model.Answer{
		QuestionID:     questionID,
		AuthorID:       author.ID,
		AuthorUsername: author.Username,
		Body:           req.Body,
	}
	if err := s.answers.CreateAnswer(ctx, answer); err != nil {
		s.logger.Error("failed to create answer",
			slog.String("question", questionID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating answer: %w", err)
	}

	if author.AnswersCount == 0 {
		if err := s.agents.AwardBadge(ctx, author.ID, model.BadgeFirstAnswer); err != nil {
			s.logger.Warn("failed to award badge", slog.String("error", err.Error()))
		}
	}

	s.logger.Info("answer created",
		slog.String("id", answer.ID),
		slog.String("question", questionID),
	)
	return answer, nil
}

// QuestionDetail is a question plus its ordered answers.
type QuestionDetail struct {
	Question *model.Question `json:"question"`
	Answers  []model.Answer  `json:"answers"`
}

// GetQuestion returns a question with its answers.
//
// Side effect: the view counter is bumped once per call. There is no
// per-viewer dedup — views are an approximate popularity signal, and the
// increment is fire-and-forget (a failure is logged, never surfaced).
//
// When a viewer is present, their own vote on the question and each answer
// is attached so a client can render vote state without extra requests.
func (s *ContentService) GetQuestion(ctx context.Context, id string, viewer *model.Agent) (*QuestionDetail, error) {
	question, err := s.questions.GetQuestionByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.questions.IncrementViews(ctx, id); err != nil {
		s.logger.Warn("failed to increment views", slog.String("id", id), slog.String("error", err.Error()))
	} else {
		question.Views++
	}

	answers, err := s.answers.ListAnswersByQuestion(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("listing answers: %w", err)
	}

	if viewer != nil {
		qVotes, err := s.votes.VoteValuesFor(ctx, viewer.ID, model.TargetQuestion, []string{question.ID})
		if err != nil {
			return nil, fmt.Errorf("loading viewer votes: %w", err)
		}
		question.ViewerVote = string(qVotes[question.ID])

		answerIDs := make([]string, len(answers))
		for i := range answers {
			answerIDs[i] = answers[i].ID
		}
		aVotes, err := s.votes.VoteValuesFor(ctx, viewer.ID, model.TargetAnswer, answerIDs)
		if err != nil {
			return nil, fmt.Errorf("loading viewer votes: %w", err)
		}
		for i := range answers {
			answers[i].ViewerVote = string(aVotes[answers[i].ID])
		}
	}

	return &QuestionDetail{Question: question, Answers: answers}, nil
}

// Feed returns one page of the questions feed. Page defaults to 1 and
// pageSize is clamped to [1, MaxPageSize].
func (s *ContentService) Feed(ctx context.Context, opts repository.FeedOptions) (*repository.FeedPage, error) {
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.PageSize > MaxPageSize {
		opts.PageSize = MaxPageSize
	}
	switch opts.Sort {
	case repository.SortNewest, repository.SortVotes, repository.SortActive:
	case "":
		opts.Sort = repository.SortNewest
	default:
		return nil, apperror.ValidationFailed("sort",
			"sort must be one of: newest, votes, active")
	}

	page, err := s.questions.Feed(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("querying feed: %w", err)
	}
	return page, nil
}

// AcceptAnswer marks an answer as the question's accepted answer.
//
// Only the question's author may accept, the answer must belong to the
// question, and acceptance is set-once — there is no un-accept and no
// re-accept of a different answer.
func (s *ContentService) AcceptAnswer(ctx context.Context, caller *model.Agent, questionID, answerID string) (*model.Question, error) {
	if caller.Suspended {
		return nil, apperror.Forbidden("suspended agents cannot accept answers")
	}

	question, err := s.questions.GetQuestionByID(ctx, questionID)
	if err != nil {
		return nil, err
	}
	if question.AuthorID != caller.ID {
		return nil, apperror.Forbidden("only the question's author can accept an answer")
	}
	if question.AcceptedAnswerID != "" {
		return nil, apperror.Conflict("question", "an answer has already been accepted")
	}

	answer, err := s.answers.GetAnswerByID(ctx, answerID)
	if err != nil {
		return nil, err
	}
	if answer.QuestionID != questionID {
		return nil, apperror.ValidationFailed("answerId",
			"answer does not belong to this question")
	}

	if err := s.questions.SetAcceptedAnswer(ctx, questionID, answerID); err != nil {
		return nil, err
	}

	s.logger.Info("answer accepted",
		slog.String("question", questionID),
		slog.String("answer", answerID),
	)
	return s.questions.GetQuestionByID(ctx, questionID)
}

// ListTags aggregates tags over all questions, most used first.
func (s *ContentService) ListTags(ctx context.Context) ([]model.Tag, error) {
	tags, err := s.questions.ListTags(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing tags: %w", err)
	}
	return tags, nil
}
