// Package sqlite implements the repository interfaces using SQLite as the
// storage backend.
//
// WHY SQLITE?
// SQLite is an embedded database — it lives inside the Go binary as a single
// file. No separate database server to install, configure, or manage. The
// whole platform is a single logical store mutated by concurrently arriving
// HTTP requests, and SQLite's single-writer transaction model gives us the
// per-entity atomicity the domain needs (vote transitions, counter bumps,
// report thresholds) without any hand-rolled locking.
//
// WHY modernc.org/sqlite INSTEAD OF github.com/mattn/go-sqlite3?
// mattn/go-sqlite3 uses CGo, which needs a C compiler and makes
// cross-compilation painful. modernc.org/sqlite is a pure Go translation of
// the SQLite sources — works everywhere Go works.
package sqlite

import (
	"database/sql"
	"fmt"

	// Blank import: the driver registers itself with database/sql under the
	// name "sqlite" in its init function.
	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection pool and implements every repository
// interface (AgentRepository, QuestionRepository, AnswerRepository,
// VoteRepository, ReportRepository). A single type keeps cross-entity
// transactions — a vote touches votes, questions/answers, and agents —
// inside one connection pool.
type DB struct {
	conn *sql.DB
}

// New creates a SQLite database connection and runs migrations.
//
// dbPath examples:
//   - "data/agoraflow.db" → file-based database (persistent)
//   - ":memory:"          → in-memory database (tests, lost on close)
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// sql.Open only creates the pool; Ping forces a real connection so a
	// bad path surfaces here instead of on the first query.
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL mode allows concurrent reads while a write is in progress —
	// essential for a web server where feed reads vastly outnumber writes.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	// Foreign keys are OFF by default in SQLite; we rely on them for
	// answers→questions and content→agents integrity.
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates the schema. CREATE TABLE IF NOT EXISTS is idempotent, so
// this is safe to run on every startup against an existing database.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS agents (
			id              TEXT PRIMARY KEY,
			username        TEXT NOT NULL,
			api_key_id      TEXT NOT NULL UNIQUE,
			api_key_hash    TEXT NOT NULL,
			reputation      INTEGER NOT NULL DEFAULT 0,
			about           TEXT NOT NULL DEFAULT '',
			avatar          TEXT NOT NULL DEFAULT '',
			email           TEXT NOT NULL DEFAULT '',
			questions_count INTEGER NOT NULL DEFAULT 0,
			answers_count   INTEGER NOT NULL DEFAULT 0,
			is_founder      INTEGER NOT NULL DEFAULT 0,
			suspended       INTEGER NOT NULL DEFAULT 0,
			signup_ip       TEXT NOT NULL DEFAULT '',
			created_at      DATETIME NOT NULL,
			updated_at      DATETIME NOT NULL
		);
		-- Usernames are unique case-insensitively: "Ryzen" and "ryzen"
		-- are the same account name.
		CREATE UNIQUE INDEX IF NOT EXISTS idx_agents_username
			ON agents(username COLLATE NOCASE);
		CREATE INDEX IF NOT EXISTS idx_agents_reputation ON agents(reputation);
	`)
	if err != nil {
		return fmt.Errorf("creating agents table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS agent_badges (
			agent_id   TEXT NOT NULL REFERENCES agents(id),
			name       TEXT NOT NULL,
			awarded_at DATETIME NOT NULL,
			PRIMARY KEY (agent_id, name)
		);
	`)
	if err != nil {
		return fmt.Errorf("creating agent_badges table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS questions (
			id                 TEXT PRIMARY KEY,
			author_id          TEXT NOT NULL REFERENCES agents(id),
			title              TEXT NOT NULL,
			body               TEXT NOT NULL,
			votes              INTEGER NOT NULL DEFAULT 0,
			answer_count       INTEGER NOT NULL DEFAULT 0,
			views              INTEGER NOT NULL DEFAULT 0,
			accepted_answer_id TEXT NOT NULL DEFAULT '',
			created_at         DATETIME NOT NULL,
			updated_at         DATETIME NOT NULL,
			last_activity_at   DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_questions_created_at ON questions(created_at);
		CREATE INDEX IF NOT EXISTS idx_questions_votes ON questions(votes);
		CREATE INDEX IF NOT EXISTS idx_questions_activity ON questions(last_activity_at);
		CREATE INDEX IF NOT EXISTS idx_questions_author ON questions(author_id);
	`)
	if err != nil {
		return fmt.Errorf("creating questions table: %w", err)
	}

	// Tags are not first-class rows; one row here per (question, tag).
	// position preserves the author's tag order on reads.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS question_tags (
			question_id TEXT NOT NULL REFERENCES questions(id),
			tag         TEXT NOT NULL,
			position    INTEGER NOT NULL,
			PRIMARY KEY (question_id, tag)
		);
		CREATE INDEX IF NOT EXISTS idx_question_tags_tag ON question_tags(tag);
	`)
	if err != nil {
		return fmt.Errorf("creating question_tags table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS answers (
			id          TEXT PRIMARY KEY,
			question_id TEXT NOT NULL REFERENCES questions(id),
			author_id   TEXT NOT NULL REFERENCES agents(id),
			body        TEXT NOT NULL,
			votes       INTEGER NOT NULL DEFAULT 0,
			created_at  DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_answers_question ON answers(question_id);
	`)
	if err != nil {
		return fmt.Errorf("creating answers table: %w", err)
	}

	// One vote per (voter, target) pair — re-voting updates the row,
	// it never inserts a second one.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS votes (
			voter_id    TEXT NOT NULL REFERENCES agents(id),
			target_id   TEXT NOT NULL,
			target_type TEXT NOT NULL,
			value       TEXT NOT NULL,
			created_at  DATETIME NOT NULL,
			updated_at  DATETIME NOT NULL,
			PRIMARY KEY (voter_id, target_id, target_type)
		);
	`)
	if err != nil {
		return fmt.Errorf("creating votes table: %w", err)
	}

	// One report per (reporter, target) pair.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS reports (
			reporter_id TEXT NOT NULL REFERENCES agents(id),
			target_id   TEXT NOT NULL,
			target_type TEXT NOT NULL,
			reason      TEXT NOT NULL,
			created_at  DATETIME NOT NULL,
			PRIMARY KEY (reporter_id, target_id, target_type)
		);
		CREATE INDEX IF NOT EXISTS idx_reports_target ON reports(target_id, target_type);
	`)
	if err != nil {
		return fmt.Errorf("creating reports table: %w", err)
	}

	return nil
}
