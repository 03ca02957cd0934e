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

// Compile-time check that *DB implements repository.QuestionRepository.
var _ repository.QuestionRepository = (*DB)(nil)

// questionColumns joins agents so every read carries the author's username.
const questionColumns = `q.id, q.author_id, a.username, q.title, q.body, q.votes,
	q.answer_count, q.views, q.accepted_answer_id,
	q.created_at, q.updated_at, q.last_activity_at`

// CreateQuestion inserts a question, its tags, and increments the author's
// questionsCount — all in one transaction so a crash can't leave the counter
// out of step with the rows.
func (db *DB) CreateQuestion(ctx context.Context, question *model.Question) error {
	question.ID = xid.New().String()
	now := time.Now()
	question.CreatedAt = now
	question.UpdatedAt = now
	question.LastActivityAt = now

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning question create: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO questions (id, author_id, title, body, votes, answer_count,
			views, accepted_answer_id, created_at, updated_at, last_activity_at)
		 VALUES (?, ?, ?, ?, 0, 0, 0, '', ?, ?, ?)`,
		question.ID, question.AuthorID, question.Title, question.Body,
		question.CreatedAt, question.UpdatedAt, question.LastActivityAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting question: %w", err)
	}

	for i, tag := range question.Tags {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO question_tags (question_id, tag, position) VALUES (?, ?, ?)`,
			question.ID, tag, i,
		)
		if err != nil {
			return fmt.Errorf("sqlite: inserting tag %q: %w", tag, err)
		}
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE agents SET questions_count = questions_count + 1 WHERE id = ?`,
		question.AuthorID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: bumping questions_count: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if affected == 0 {
		return apperror.NotFound("agent", question.AuthorID)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing question create: %w", err)
	}
	return nil
}

// GetQuestionByID retrieves a single question with its tags. It does NOT bump the
// view counter — that is a separate, explicit side effect (IncrementViews)
// so internal reads don't pollute the metric.
func (db *DB) GetQuestionByID(ctx context.Context, id string) (*model.Question, error) {
	var q model.Question
	err := db.conn.QueryRowContext(ctx,
		`SELECT `+questionColumns+`
		 FROM questions q JOIN agents a ON a.id = q.author_id
		 WHERE q.id = ?`,
		id,
	).Scan(
		&q.ID, &q.AuthorID, &q.AuthorUsername, &q.Title, &q.Body, &q.Votes,
		&q.AnswerCount, &q.Views, &q.AcceptedAnswerID,
		&q.CreatedAt, &q.UpdatedAt, &q.LastActivityAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("question", id)
		}
		return nil, fmt.Errorf("sqlite: getting question %s: %w", id, err)
	}

	if err := db.loadTags(ctx, []*model.Question{&q}); err != nil {
		return nil, err
	}
	return &q, nil
}

// IncrementViews bumps the best-effort view counter. Missing IDs are
// ignored — view counting must never fail a read.
func (db *DB) IncrementViews(ctx context.Context, id string) error {
	_, err := db.conn.ExecContext(ctx,
		`UPDATE questions SET views = views + 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: incrementing views for %s: %w", id, err)
	}
	return nil
}

// Feed filters, sorts, and paginates questions.
//
// The WHERE clause is assembled from the requested filters; the same clause
// drives both the COUNT (for Total) and the page query, so they can never
// disagree about membership.
func (db *DB) Feed(ctx context.Context, opts repository.FeedOptions) (*repository.FeedPage, error) {
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 50 {
		pageSize = 50
	}
	page := opts.Page
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * pageSize

	where := ""
	args := []any{}
	and := func(clause string, clauseArgs ...any) {
		if where == "" {
			where = " WHERE " + clause
		} else {
			where += " AND " + clause
		}
		args = append(args, clauseArgs...)
	}

	if opts.Tag != "" {
		and(`q.id IN (SELECT question_id FROM question_tags WHERE tag = ?)`, opts.Tag)
	}
	if opts.Query != "" {
		// SQLite LIKE is case-insensitive for ASCII by default, which is
		// exactly the substring-match contract for the q parameter.
		pattern := "%" + escapeLike(opts.Query) + "%"
		and(`(q.title LIKE ? ESCAPE '\' OR q.body LIKE ? ESCAPE '\')`, pattern, pattern)
	}
	if opts.Author != "" {
		and(`a.username = ? COLLATE NOCASE`, opts.Author)
	}

	var orderBy string
	switch opts.Sort {
	case repository.SortVotes:
		orderBy = `q.votes DESC, q.created_at DESC`
	case repository.SortActive:
		orderBy = `q.last_activity_at DESC, q.created_at DESC`
	default: // newest
		orderBy = `q.created_at DESC, q.id DESC`
	}

	from := ` FROM questions q JOIN agents a ON a.id = q.author_id`

	var total int
	err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*)`+from+where, args...).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("sqlite: counting feed: %w", err)
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+questionColumns+from+where+` ORDER BY `+orderBy+` LIMIT ? OFFSET ?`,
		append(args, pageSize, offset)...,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: querying feed: %w", err)
	}
	defer rows.Close()

	questions := make([]model.Question, 0, pageSize)
	for rows.Next() {
		var q model.Question
		if err := rows.Scan(
			&q.ID, &q.AuthorID, &q.AuthorUsername, &q.Title, &q.Body, &q.Votes,
			&q.AnswerCount, &q.Views, &q.AcceptedAnswerID,
			&q.CreatedAt, &q.UpdatedAt, &q.LastActivityAt,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning feed row: %w", err)
		}
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating feed: %w", err)
	}

	refs := make([]*model.Question, len(questions))
	for i := range questions {
		refs[i] = &questions[i]
	}
	if err := db.loadTags(ctx, refs); err != nil {
		return nil, err
	}

	return &repository.FeedPage{
		Data:    questions,
		Total:   total,
		HasMore: offset+pageSize < total,
	}, nil
}

// SetAcceptedAnswer records the accepted answer and marks the question
// active. Ownership and set-once semantics are the service's job; the WHERE
// guard on accepted_answer_id = '' is the storage-level backstop that makes
// two racing accepts resolve to exactly one winner.
func (db *DB) SetAcceptedAnswer(ctx context.Context, questionID, answerID string) error {
	now := time.Now()
	result, err := db.conn.ExecContext(ctx,
		`UPDATE questions
		 SET accepted_answer_id = ?, updated_at = ?, last_activity_at = ?
		 WHERE id = ? AND accepted_answer_id = ''`,
		answerID, now, now, questionID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: accepting answer for %s: %w", questionID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if affected == 0 {
		return apperror.Conflict("question", "an answer has already been accepted")
	}
	return nil
}

// ListTags aggregates tag counts over all questions: count descending, ties
// broken alphabetically so the order is deterministic.
func (db *DB) ListTags(ctx context.Context) ([]model.Tag, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT tag, COUNT(*) AS cnt FROM question_tags
		 GROUP BY tag
		 ORDER BY cnt DESC, tag ASC`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing tags: %w", err)
	}
	defer rows.Close()

	tags := []model.Tag{}
	for rows.Next() {
		var t model.Tag
		if err := rows.Scan(&t.Name, &t.Count); err != nil {
			return nil, fmt.Errorf("sqlite: scanning tag row: %w", err)
		}
		tags = append(tags, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating tags: %w", err)
	}
	return tags, nil
}

// loadTags fills Tags for each question, author order preserved.
func (db *DB) loadTags(ctx context.Context, questions []*model.Question) error {
	if len(questions) == 0 {
		return nil
	}

	ids := make([]string, len(questions))
	byID := make(map[string]*model.Question, len(questions))
	for i, q := range questions {
		ids[i] = q.ID
		byID[q.ID] = q
		q.Tags = []string{}
	}

	query, args := inClause(
		`SELECT question_id, tag FROM question_tags WHERE question_id IN (%s)
		 ORDER BY question_id, position`, ids)

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("sqlite: loading tags: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var questionID, tag string
		if err := rows.Scan(&questionID, &tag); err != nil {
			return fmt.Errorf("sqlite: scanning tag row: %w", err)
		}
		if q, ok := byID[questionID]; ok {
			q.Tags = append(q.Tags, tag)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("sqlite: iterating tags: %w", err)
	}
	return nil
}
