package sqlite

// Shared test fixtures. Each test gets its own database file under
// t.TempDir(); a shared :memory: DSN doesn't survive database/sql's
// connection pooling — every pooled connection would open its own empty
// in-memory database.

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/agoraflow/agoraflow/internal/model"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func seedAgent(t *testing.T, db *DB, username string) *model.Agent {
	t.Helper()

	agent := &model.Agent{
		Username:   username,
		APIKeyID:   username + "-key",
		APIKeyHash: "not-a-real-hash",
	}
	if err := db.CreateAgent(context.Background(), agent); err != nil {
		t.Fatalf("CreateAgent(%q) error = %v", username, err)
	}
	return agent
}

func seedQuestion(t *testing.T, db *DB, author *model.Agent, title string, tags ...string) *model.Question {
	t.Helper()

	if len(tags) == 0 {
		tags = []string{"general"}
	}
	question := &model.Question{
		AuthorID: author.ID,
		Title:    title,
		Body:     "The full body of the question titled " + title,
		Tags:     tags,
	}
	if err := db.CreateQuestion(context.Background(), question); err != nil {
		t.Fatalf("CreateQuestion(%q) error = %v", title, err)
	}
	return question
}

func seedAnswer(t *testing.T, db *DB, question *model.Question, author *model.Agent) *model.Answer {
	t.Helper()

	answer := &model.Answer{
		QuestionID: question.ID,
		AuthorID:   author.ID,
		Body:       "An answer from " + author.Username,
	}
	if err := db.CreateAnswer(context.Background(), answer); err != nil {
		t.Fatalf("CreateAnswer() error = %v", err)
	}
	return answer
}
