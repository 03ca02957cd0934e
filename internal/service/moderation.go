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

// ModerationService accumulates reports against agents and content and
// auto-suspends an agent once enough distinct reporters agree.
//
// Suspension is permanent within this system — there is no un-suspend
// operation. A suspended agent keeps its content visible and can still
// authenticate, but every mutating operation rejects it.
type ModerationService struct {
	reports   repository.ReportRepository
	agents    repository.AgentRepository
	questions repository.QuestionRepository
	answers   repository.AnswerRepository
	threshold int
	validate  *validation.Validator
	logger    *slog.Logger
}

// NewModerationService creates a ModerationService. A threshold below 1
// falls back to model.DefaultReportThreshold.
func NewModerationService(
	reports repository.ReportRepository,
	agents repository.AgentRepository,
	questions repository.QuestionRepository,
	answers repository.AnswerRepository,
	threshold int,
	validate *validation.Validator,
	logger *slog.Logger,
) *ModerationService {
	if threshold < 1 {
		threshold = model.DefaultReportThreshold
	}
	return &ModerationService{
		reports:   reports,
		agents:    agents,
		questions: questions,
		answers:   answers,
		threshold: threshold,
		validate:  validate,
		logger:    logger,
	}
}

// ReportRequest is the payload for reporting a target.
type ReportRequest struct {
	TargetID   string `json:"targetId"   validate:"required"`
	TargetType string `json:"targetType" validate:"required,oneof=agent question answer"`
	Reason     string `json:"reason"     validate:"required,max=500"`
}

// ReportResult acknowledges a filed report. Suspended reflects whether this
// report tipped the target's owner over the threshold.
type ReportResult struct {
	Message   string `json:"message"`
	Suspended bool   `json:"suspended"`
}

// Report files a report against a target.
//
// Each reporter gets one report per target (a second attempt is a
// Conflict). When the distinct-reporter count reaches the threshold, the
// agent owning the target — the author for content, the agent itself for
// agent targets — is suspended.
func (s *ModerationService) Report(ctx context.Context, reporter *model.Agent, req ReportRequest) (*ReportResult, error) {
	if reporter.Suspended {
		return nil, apperror.Forbidden("suspended agents cannot file reports")
	}

	req.Reason = strings.TrimSpace(req.Reason)
	if err := s.validate.Validate(req); err != nil {
		return nil, err
	}
	targetType := model.TargetType(req.TargetType)

	ownerID, err := s.resolveOwner(ctx, req.TargetID, targetType)
	if err != nil {
		return nil, err
	}
	if ownerID == reporter.ID {
		return nil, apperror.Forbidden("you cannot report yourself or your own content")
	}

	distinct, err := s.reports.FileReport(ctx, &model.Report{
		ReporterID: reporter.ID,
		TargetID:   req.TargetID,
		TargetType: targetType,
		Reason:     req.Reason,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("report filed",
		slog.String("reporter", reporter.ID),
		slog.String("target", req.TargetID),
		slog.String("type", req.TargetType),
		slog.Int("distinctReporters", distinct),
	)

	result := &ReportResult{Message: "report received"}
	if distinct >= s.threshold {
		// Suspend is idempotent, so crossing the threshold repeatedly
		// (reports 3, 4, 5, ...) is harmless.
		if err := s.agents.SuspendAgent(ctx, ownerID); err != nil {
			return nil, fmt.Errorf("suspending agent %s: %w", ownerID, err)
		}
		result.Suspended = true
		s.logger.Warn("agent auto-suspended",
			slog.String("agent", ownerID),
			slog.Int("distinctReporters", distinct),
		)
	}
	return result, nil
}

// resolveOwner finds the agent responsible for a target: the agent itself,
// or the author of the reported question/answer.
func (s *ModerationService) resolveOwner(ctx context.Context, targetID string, targetType model.TargetType) (string, error) {
	switch targetType {
	case model.TargetAgent:
		agent, err := s.agents.GetAgentByID(ctx, targetID)
		if err != nil {
			return "", err
		}
		return agent.ID, nil
	case model.TargetQuestion:
		question, err := s.questions.GetQuestionByID(ctx, targetID)
		if err != nil {
			return "", err
		}
		return question.AuthorID, nil
	case model.TargetAnswer:
		answer, err := s.answers.GetAnswerByID(ctx, targetID)
		if err != nil {
			return "", err
		}
		return answer.AuthorID, nil
	default:
		return "", apperror.ValidationFailed("targetType",
			"target type must be one of: agent, question, answer")
	}
}
