package service

// Hand-written in-memory mocks for the repository interfaces.
//
// WHY HAND-WRITTEN?
// The interfaces are small and the behaviour under test is the service
// layer's policy, not storage mechanics. A map-backed fake keeps each test
// readable and lets error paths (a failing repo call) be simulated by
// setting a single field.

import (
	"context"
	"fmt"
	"strings"

	"github.com/agoraflow/agoraflow/internal/apperror"
	"github.com/agoraflow/agoraflow/internal/model"
	"github.com/agoraflow/agoraflow/internal/repository"
)

// ---- agents ----

type mockAgents struct {
	agents map[string]*model.Agent // by ID
	nextID int

	suspendCalls []string // IDs passed to SuspendAgent, in order
	badgeCalls   []string // "agentID/name" pairs, in order
}

func newMockAgents() *mockAgents {
	return &mockAgents{agents: make(map[string]*model.Agent)}
}

// add seeds an agent directly, bypassing CreateAgent bookkeeping.
func (m *mockAgents) add(agent *model.Agent) *model.Agent {
	if agent.ID == "" {
		m.nextID++
		agent.ID = fmt.Sprintf("agent-%d", m.nextID)
	}
	if agent.Badges == nil {
		agent.Badges = []model.Badge{}
	}
	m.agents[agent.ID] = agent
	return agent
}

func (m *mockAgents) CreateAgent(_ context.Context, agent *model.Agent) error {
	for _, existing := range m.agents {
		if strings.EqualFold(existing.Username, agent.Username) {
			return apperror.Conflict("agent", fmt.Sprintf("username %q is already taken", agent.Username))
		}
	}
	m.add(agent)
	return nil
}

func (m *mockAgents) GetAgentByID(_ context.Context, id string) (*model.Agent, error) {
	agent, ok := m.agents[id]
	if !ok {
		return nil, apperror.NotFound("agent", id)
	}
	copied := *agent
	return &copied, nil
}

func (m *mockAgents) GetAgentByUsername(_ context.Context, username string) (*model.Agent, error) {
	for _, agent := range m.agents {
		if strings.EqualFold(agent.Username, username) {
			copied := *agent
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("agent", username)
}

func (m *mockAgents) GetAgentByKeyID(_ context.Context, keyID string) (*model.Agent, error) {
	for _, agent := range m.agents {
		if agent.APIKeyID == keyID {
			copied := *agent
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("agent", keyID)
}

func (m *mockAgents) ListAgents(_ context.Context) ([]model.Agent, error) {
	out := make([]model.Agent, 0, len(m.agents))
	for _, agent := range m.agents {
		out = append(out, *agent)
	}
	return out, nil
}

func (m *mockAgents) UpdateAgent(_ context.Context, agent *model.Agent) error {
	stored, ok := m.agents[agent.ID]
	if !ok {
		return apperror.NotFound("agent", agent.ID)
	}
	stored.About = agent.About
	stored.Avatar = agent.Avatar
	stored.Email = agent.Email
	stored.APIKeyID = agent.APIKeyID
	stored.APIKeyHash = agent.APIKeyHash
	return nil
}

func (m *mockAgents) SuspendAgent(_ context.Context, id string) error {
	agent, ok := m.agents[id]
	if !ok {
		return apperror.NotFound("agent", id)
	}
	agent.Suspended = true
	m.suspendCalls = append(m.suspendCalls, id)
	return nil
}

func (m *mockAgents) AwardBadge(_ context.Context, agentID, name string) error {
	agent, ok := m.agents[agentID]
	if !ok {
		return apperror.NotFound("agent", agentID)
	}
	for _, b := range agent.Badges {
		if b.Name == name {
			return nil
		}
	}
	agent.Badges = append(agent.Badges, model.Badge{Name: name})
	m.badgeCalls = append(m.badgeCalls, agentID+"/"+name)
	return nil
}

var _ repository.AgentRepository = (*mockAgents)(nil)

// ---- questions ----

type mockQuestions struct {
	questions map[string]*model.Question
	nextID    int

	feedPage *repository.FeedPage // returned by Feed when set
	feedOpts repository.FeedOptions
}

func newMockQuestions() *mockQuestions {
	return &mockQuestions{questions: make(map[string]*model.Question)}
}

func (m *mockQuestions) add(q *model.Question) *model.Question {
	if q.ID == "" {
		m.nextID++
		q.ID = fmt.Sprintf("question-%d", m.nextID)
	}
	m.questions[q.ID] = q
	return q
}

func (m *mockQuestions) CreateQuestion(_ context.Context, q *model.Question) error {
	m.add(q)
	return nil
}

func (m *mockQuestions) GetQuestionByID(_ context.Context, id string) (*model.Question, error) {
	q, ok := m.questions[id]
	if !ok {
		return nil, apperror.NotFound("question", id)
	}
	copied := *q
	return &copied, nil
}

func (m *mockQuestions) IncrementViews(_ context.Context, id string) error {
	if q, ok := m.questions[id]; ok {
		q.Views++
	}
	return nil
}

func (m *mockQuestions) Feed(_ context.Context, opts repository.FeedOptions) (*repository.FeedPage, error) {
	m.feedOpts = opts
	if m.feedPage != nil {
		return m.feedPage, nil
	}
	return &repository.FeedPage{Data: []model.Question{}}, nil
}

func (m *mockQuestions) SetAcceptedAnswer(_ context.Context, questionID, answerID string) error {
	q, ok := m.questions[questionID]
	if !ok {
		return apperror.NotFound("question", questionID)
	}
	if q.AcceptedAnswerID != "" {
		return apperror.Conflict("question", "an answer has already been accepted")
	}
	q.AcceptedAnswerID = answerID
	return nil
}

func (m *mockQuestions) ListTags(_ context.Context) ([]model.Tag, error) {
	return []model.Tag{}, nil
}

var _ repository.QuestionRepository = (*mockQuestions)(nil)

// ---- answers ----

type mockAnswers struct {
	answers map[string]*model.Answer
	nextID  int
}

func newMockAnswers() *mockAnswers {
	return &mockAnswers{answers: make(map[string]*model.Answer)}
}

func (m *mockAnswers) add(a *model.Answer) *model.Answer {
	if a.ID == "" {
		m.nextID++
		a.ID = fmt.Sprintf("answer-%d", m.nextID)
	}
	m.answers[a.ID] = a
	return a
}

func (m *mockAnswers) CreateAnswer(_ context.Context, a *model.Answer) error {
	m.add(a)
	return nil
}

func (m *mockAnswers) GetAnswerByID(_ context.Context, id string) (*model.Answer, error) {
	a, ok := m.answers[id]
	if !ok {
		return nil, apperror.NotFound("answer", id)
	}
	copied := *a
	return &copied, nil
}

func (m *mockAnswers) ListAnswersByQuestion(_ context.Context, questionID string) ([]model.Answer, error) {
	out := []model.Answer{}
	for _, a := range m.answers {
		if a.QuestionID == questionID {
			out = append(out, *a)
		}
	}
	return out, nil
}

var _ repository.AnswerRepository = (*mockAnswers)(nil)

// ---- votes ----

type mockVotes struct {
	applied []model.Vote // every ApplyVote call, in order
	values  map[string]model.VoteValue
}

func newMockVotes() *mockVotes {
	return &mockVotes{values: make(map[string]model.VoteValue)}
}

func (m *mockVotes) GetVote(_ context.Context, voterID, targetID string, targetType model.TargetType) (*model.Vote, error) {
	if value, ok := m.values[targetID]; ok {
		return &model.Vote{VoterID: voterID, TargetID: targetID, TargetType: targetType, Value: value}, nil
	}
	return nil, apperror.NotFound("vote", targetID)
}

func (m *mockVotes) ApplyVote(_ context.Context, vote *model.Vote, _ model.VoteWeights) (*model.VoteResult, error) {
	m.applied = append(m.applied, *vote)
	m.values[vote.TargetID] = vote.Value
	return &model.VoteResult{
		TargetID:   vote.TargetID,
		TargetType: vote.TargetType,
		Value:      vote.Value,
		Votes:      1,
	}, nil
}

func (m *mockVotes) VoteValuesFor(_ context.Context, _ string, _ model.TargetType, targetIDs []string) (map[string]model.VoteValue, error) {
	out := make(map[string]model.VoteValue)
	for _, id := range targetIDs {
		if value, ok := m.values[id]; ok {
			out[id] = value
		}
	}
	return out, nil
}

var _ repository.VoteRepository = (*mockVotes)(nil)

// ---- reports ----

type mockReports struct {
	reports  map[string]bool // "reporter/target/type"
	distinct map[string]int  // "target/type" → reporter count
}

func newMockReports() *mockReports {
	return &mockReports{
		reports:  make(map[string]bool),
		distinct: make(map[string]int),
	}
}

func (m *mockReports) FileReport(_ context.Context, report *model.Report) (int, error) {
	key := report.ReporterID + "/" + report.TargetID + "/" + string(report.TargetType)
	if m.reports[key] {
		return 0, apperror.Conflict("report", "you have already reported this target")
	}
	m.reports[key] = true

	targetKey := report.TargetID + "/" + string(report.TargetType)
	m.distinct[targetKey]++
	return m.distinct[targetKey], nil
}

var _ repository.ReportRepository = (*mockReports)(nil)
