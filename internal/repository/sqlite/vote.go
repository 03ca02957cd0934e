package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/agoraflow/agoraflow/internal/apperror"
	"github.com/agoraflow/agoraflow/internal/model"
	"github.com/agoraflow/agoraflow/internal/repository"
)

// Compile-time check that *DB implements repository.VoteRepository.
var _ repository.VoteRepository = (*DB)(nil)

// GetVote returns the voter's current vote on a target, or ErrNotFound.
func (db *DB) GetVote(ctx context.Context, voterID, targetID string, targetType model.TargetType) (*model.Vote, error) {
	var v model.Vote
	err := db.conn.QueryRowContext(ctx,
		`SELECT voter_id, target_id, target_type, value, created_at, updated_at
		 FROM votes WHERE voter_id = ? AND target_id = ? AND target_type = ?`,
		voterID, targetID, string(targetType),
	).Scan(&v.VoterID, &v.TargetID, &v.TargetType, &v.Value, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("vote", targetID)
		}
		return nil, fmt.Errorf("sqlite: getting vote: %w", err)
	}
	return &v, nil
}

// ApplyVote executes one transition of the vote state machine.
//
// Everything happens inside a single transaction:
//
//  1. read the voter's stored vote on the target (if any)
//  2. compute the vote-total and reputation deltas from the transition table
//  3. upsert the vote row
//  4. adjust the target's vote total
//  5. adjust the target author's reputation
//
// SQLite serialises writers, so two concurrent re-votes by the same voter
// cannot interleave between the read in (1) and the writes in (3—5): the
// transition is an atomic read-modify-write and no update is lost.
//
// Repeating the stored value is a no-op by construction (both deltas are 0,
// the upsert rewrites the same value). There is no path back to "no vote".
func (db *DB) ApplyVote(ctx context.Context, vote *model.Vote, weights model.VoteWeights) (*model.VoteResult, error) {
	var table string
	switch vote.TargetType {
	case model.TargetQuestion:
		table = "questions"
	case model.TargetAnswer:
		table = "answers"
	default:
		return nil, apperror.ValidationFailed("targetType",
			fmt.Sprintf("cannot vote on target type %q", vote.TargetType))
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("sqlite: beginning vote: %w", err)
	}
	defer tx.Rollback()

	// The target row doubles as the author lookup and the existence check.
	var authorID string
	err = tx.QueryRowContext(ctx,
		`SELECT author_id FROM `+table+` WHERE id = ?`, vote.TargetID,
	).Scan(&authorID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound(string(vote.TargetType), vote.TargetID)
		}
		return nil, fmt.Errorf("sqlite: resolving vote target: %w", err)
	}

	var current model.VoteValue
	err = tx.QueryRowContext(ctx,
		`SELECT value FROM votes WHERE voter_id = ? AND target_id = ? AND target_type = ?`,
		vote.VoterID, vote.TargetID, string(vote.TargetType),
	).Scan(&current)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("sqlite: reading current vote: %w", err)
	}

	delta := model.VoteDelta(current, vote.Value)
	repDelta := weights.ReputationDelta(current, vote.Value)

	now := time.Now()
	vote.CreatedAt = now
	vote.UpdatedAt = now
	_, err = tx.ExecContext(ctx,
		`INSERT INTO votes (voter_id, target_id, target_type, value, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (voter_id, target_id, target_type)
		 DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		vote.VoterID, vote.TargetID, string(vote.TargetType), string(vote.Value), now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: upserting vote: %w", err)
	}

	if delta != 0 {
		if _, err := tx.ExecContext(ctx,
			`UPDATE `+table+` SET votes = votes + ? WHERE id = ?`,
			delta, vote.TargetID,
		); err != nil {
			return nil, fmt.Errorf("sqlite: adjusting vote total: %w", err)
		}
	}
	if repDelta != 0 {
		if _, err := tx.ExecContext(ctx,
			`UPDATE agents SET reputation = reputation + ? WHERE id = ?`,
			repDelta, authorID,
		); err != nil {
			return nil, fmt.Errorf("sqlite: adjusting reputation: %w", err)
		}
	}

	var total int
	if err := tx.QueryRowContext(ctx,
		`SELECT votes FROM `+table+` WHERE id = ?`, vote.TargetID,
	).Scan(&total); err != nil {
		return nil, fmt.Errorf("sqlite: reading new vote total: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("sqlite: committing vote: %w", err)
	}

	return &model.VoteResult{
		TargetID:   vote.TargetID,
		TargetType: vote.TargetType,
		Value:      vote.Value,
		Votes:      total,
	}, nil
}

// VoteValuesFor returns the voter's vote values for the given targets.
// Used to attach "your vote" markers when an authenticated agent reads a
// question page. Targets without a vote are simply absent from the map.
func (db *DB) VoteValuesFor(ctx context.Context, voterID string, targetType model.TargetType, targetIDs []string) (map[string]model.VoteValue, error) {
	out := make(map[string]model.VoteValue, len(targetIDs))
	if voterID == "" || len(targetIDs) == 0 {
		return out, nil
	}

	query, args := inClause(
		`SELECT target_id, value FROM votes
		 WHERE voter_id = ? AND target_type = ? AND target_id IN (%s)`, targetIDs)
	args = append([]any{voterID, string(targetType)}, args...)

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: loading vote values: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var targetID string
		var value model.VoteValue
		if err := rows.Scan(&targetID, &value); err != nil {
			return nil, fmt.Errorf("sqlite: scanning vote value: %w", err)
		}
		out[targetID] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating vote values: %w", err)
	}
	return out, nil
}
