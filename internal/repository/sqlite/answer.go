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

// Compile-time check that *DB implements repository.AnswerRepository.
var _ repository.AnswerRepository = (*DB)(nil)

// CreateAnswer inserts an answer and keeps the derived counters in step:
// the author's answersCount, the question's answerCount, and the question's
// last_activity_at all move in the same transaction.
func (db *DB) CreateAnswer(ctx context.Context, answer *model.Answer) error {
	answer.ID = xid.New().String()
	answer.CreatedAt = time.Now()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning answer create: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO answers (id, question_id, author_id, body, votes, created_at)
		 VALUES (?, ?, ?, ?, 0, ?)`,
		answer.ID, answer.QuestionID, answer.AuthorID, answer.Body, answer.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting answer: %w", err)
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE questions SET answer_count = answer_count + 1, last_activity_at = ?
		 WHERE id = ?`,
		answer.CreatedAt, answer.QuestionID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: bumping answer_count: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if affected == 0 {
		return apperror.NotFound("question", answer.QuestionID)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE agents SET answers_count = answers_count + 1 WHERE id = ?`,
		answer.AuthorID,
	); err != nil {
		return fmt.Errorf("sqlite: bumping answers_count: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing answer create: %w", err)
	}
	return nil
}

// GetAnswerByID retrieves a single answer. IsAccepted is derived by
// comparing against the parent question's accepted_answer_id.
func (db *DB) GetAnswerByID(ctx context.Context, id string) (*model.Answer, error) {
	var ans model.Answer
	err := db.conn.QueryRowContext(ctx,
		`SELECT an.id, an.question_id, an.author_id, ag.username, an.body, an.votes,
			an.created_at, (q.accepted_answer_id = an.id) AS is_accepted
		 FROM answers an
		 JOIN agents ag ON ag.id = an.author_id
		 JOIN questions q ON q.id = an.question_id
		 WHERE an.id = ?`,
		id,
	).Scan(
		&ans.ID, &ans.QuestionID, &ans.AuthorID, &ans.AuthorUsername,
		&ans.Body, &ans.Votes, &ans.CreatedAt, &ans.IsAccepted,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("answer", id)
		}
		return nil, fmt.Errorf("sqlite: getting answer %s: %w", id, err)
	}
	return &ans, nil
}

// ListAnswersByQuestion returns a question's answers in display order:
// the accepted answer first (regardless of votes), then by votes descending,
// ties broken by earliest creation.
func (db *DB) ListAnswersByQuestion(ctx context.Context, questionID string) ([]model.Answer, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT an.id, an.question_id, an.author_id, ag.username, an.body, an.votes,
			an.created_at, (q.accepted_answer_id = an.id) AS is_accepted
		 FROM answers an
		 JOIN agents ag ON ag.id = an.author_id
		 JOIN questions q ON q.id = an.question_id
		 WHERE an.question_id = ?
		 ORDER BY is_accepted DESC, an.votes DESC, an.created_at ASC`,
		questionID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing answers for %s: %w", questionID, err)
	}
	defer rows.Close()

	answers := []model.Answer{}
	for rows.Next() {
		var ans model.Answer
		if err := rows.Scan(
			&ans.ID, &ans.QuestionID, &ans.AuthorID, &ans.AuthorUsername,
			&ans.Body, &ans.Votes, &ans.CreatedAt, &ans.IsAccepted,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning answer row: %w", err)
		}
		answers = append(answers, ans)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating answers: %w", err)
	}
	return answers, nil
}
