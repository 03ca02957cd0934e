package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/agoraflow/agoraflow/internal/apperror"
	"github.com/agoraflow/agoraflow/internal/model"
	"github.com/agoraflow/agoraflow/internal/repository"
)

// Compile-time check that *DB implements repository.AgentRepository.
var _ repository.AgentRepository = (*DB)(nil)

const agentColumns = `id, username, api_key_id, api_key_hash, reputation, about,
	avatar, email, questions_count, answers_count, is_founder, suspended,
	created_at, updated_at`

// CreateAgent inserts a new agent.
//
// Username uniqueness is case-insensitive and enforced twice: a pre-check for
// a friendly Conflict error, and the COLLATE NOCASE unique index as the
// authoritative guard. The check and insert run inside one transaction, so a
// concurrent signup racing for the same name hits the index, which we also
// translate to Conflict.
func (db *DB) CreateAgent(ctx context.Context, agent *model.Agent) error {
	agent.ID = xid.New().String()
	now := time.Now()
	agent.CreatedAt = now
	agent.UpdatedAt = now

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning agent create: %w", err)
	}
	defer tx.Rollback()

	var existing string
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM agents WHERE username = ? COLLATE NOCASE`, agent.Username,
	).Scan(&existing)
	if err == nil {
		return apperror.Conflict("agent", fmt.Sprintf("username %q is already taken", agent.Username))
	}
	if err != sql.ErrNoRows {
		return fmt.Errorf("sqlite: checking username %q: %w", agent.Username, err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO agents (id, username, api_key_id, api_key_hash, reputation,
			about, avatar, email, questions_count, answers_count, is_founder,
			suspended, signup_ip, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		agent.ID, agent.Username, agent.APIKeyID, agent.APIKeyHash,
		agent.Reputation, agent.About, agent.Avatar, agent.Email,
		agent.QuestionsCount, agent.AnswersCount, agent.IsFounder,
		agent.Suspended, "", agent.CreatedAt, agent.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("agent", fmt.Sprintf("username %q is already taken", agent.Username))
		}
		return fmt.Errorf("sqlite: inserting agent %q: %w", agent.Username, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing agent create: %w", err)
	}
	return nil
}

// GetAgentByID retrieves an agent, badges included.
func (db *DB) GetAgentByID(ctx context.Context, id string) (*model.Agent, error) {
	return db.getAgent(ctx, `WHERE id = ?`, id)
}

// GetAgentByUsername retrieves an agent by username, case-insensitively.
func (db *DB) GetAgentByUsername(ctx context.Context, username string) (*model.Agent, error) {
	return db.getAgent(ctx, `WHERE username = ? COLLATE NOCASE`, username)
}

// GetAgentByKeyID resolves an agent from the public half of its API key.
func (db *DB) GetAgentByKeyID(ctx context.Context, keyID string) (*model.Agent, error) {
	return db.getAgent(ctx, `WHERE api_key_id = ?`, keyID)
}

func (db *DB) getAgent(ctx context.Context, where string, arg any) (*model.Agent, error) {
	var a model.Agent
	err := db.conn.QueryRowContext(ctx,
		`SELECT `+agentColumns+` FROM agents `+where, arg,
	).Scan(
		&a.ID, &a.Username, &a.APIKeyID, &a.APIKeyHash, &a.Reputation,
		&a.About, &a.Avatar, &a.Email, &a.QuestionsCount, &a.AnswersCount,
		&a.IsFounder, &a.Suspended, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("agent", fmt.Sprint(arg))
		}
		return nil, fmt.Errorf("sqlite: getting agent: %w", err)
	}

	badges, err := db.badgesFor(ctx, []string{a.ID})
	if err != nil {
		return nil, err
	}
	a.Badges = badges[a.ID]
	if a.Badges == nil {
		a.Badges = []model.Badge{}
	}
	return &a, nil
}

// ListAgents returns all agents sorted by reputation descending, ties broken by
// oldest account first (xid IDs sort by creation time).
func (db *DB) ListAgents(ctx context.Context) ([]model.Agent, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+agentColumns+` FROM agents ORDER BY reputation DESC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing agents: %w", err)
	}
	defer rows.Close()

	agents := []model.Agent{}
	ids := []string{}
	for rows.Next() {
		var a model.Agent
		if err := rows.Scan(
			&a.ID, &a.Username, &a.APIKeyID, &a.APIKeyHash, &a.Reputation,
			&a.About, &a.Avatar, &a.Email, &a.QuestionsCount, &a.AnswersCount,
			&a.IsFounder, &a.Suspended, &a.CreatedAt, &a.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning agent row: %w", err)
		}
		a.Badges = []model.Badge{}
		agents = append(agents, a)
		ids = append(ids, a.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating agents: %w", err)
	}

	badges, err := db.badgesFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range agents {
		if b, ok := badges[agents[i].ID]; ok {
			agents[i].Badges = b
		}
	}
	return agents, nil
}

// UpdateAgent writes the mutable profile and credential fields.
// The username, counters, reputation, and flags are managed elsewhere.
func (db *DB) UpdateAgent(ctx context.Context, agent *model.Agent) error {
	agent.UpdatedAt = time.Now()

	result, err := db.conn.ExecContext(ctx,
		`UPDATE agents
		 SET about = ?, avatar = ?, email = ?, api_key_id = ?, api_key_hash = ?, updated_at = ?
		 WHERE id = ?`,
		agent.About, agent.Avatar, agent.Email,
		agent.APIKeyID, agent.APIKeyHash, agent.UpdatedAt, agent.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating agent %s: %w", agent.ID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if affected == 0 {
		return apperror.NotFound("agent", agent.ID)
	}
	return nil
}

// SuspendAgent sets the suspended flag. Idempotent — suspending a suspended agent
// is a no-op, not an error, but an unknown ID is NotFound.
func (db *DB) SuspendAgent(ctx context.Context, id string) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE agents SET suspended = 1, updated_at = ? WHERE id = ?`,
		time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: suspending agent %s: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if affected == 0 {
		return apperror.NotFound("agent", id)
	}
	return nil
}

// AwardBadge appends a badge record unless the agent already holds one with
// the same name. The (agent_id, name) primary key makes the insert a no-op
// on conflict.
func (db *DB) AwardBadge(ctx context.Context, agentID, name string) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO agent_badges (agent_id, name, awarded_at) VALUES (?, ?, ?)
		 ON CONFLICT (agent_id, name) DO NOTHING`,
		agentID, name, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: awarding badge %q to %s: %w", name, agentID, err)
	}
	return nil
}

// badgesFor loads badges for the given agent IDs, award order preserved.
func (db *DB) badgesFor(ctx context.Context, agentIDs []string) (map[string][]model.Badge, error) {
	out := make(map[string][]model.Badge, len(agentIDs))
	if len(agentIDs) == 0 {
		return out, nil
	}

	query, args := inClause(
		`SELECT agent_id, name, awarded_at FROM agent_badges WHERE agent_id IN (%s)
		 ORDER BY awarded_at ASC, name ASC`, agentIDs)

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: loading badges: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var agentID string
		var b model.Badge
		if err := rows.Scan(&agentID, &b.Name, &b.AwardedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning badge row: %w", err)
		}
		out[agentID] = append(out[agentID], b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating badges: %w", err)
	}
	return out, nil
}
