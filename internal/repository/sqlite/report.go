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

// Compile-time check that *DB implements repository.ReportRepository.
var _ repository.ReportRepository = (*DB)(nil)

// FileReport appends a report and returns the distinct-reporter count for
// the target after the insert. The caller (moderation service) compares the
// count against the suspension threshold.
//
// A reporter gets one report per target, ever: a second attempt returns
// Conflict. Check, insert, and count share one transaction, so two racing
// reports by different reporters both see an accurate count and duplicate
// reports by the same reporter cannot slip through (the primary key backs
// the pre-check up).
func (db *DB) FileReport(ctx context.Context, report *model.Report) (int, error) {
	report.CreatedAt = time.Now()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("sqlite: beginning report: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx,
		`SELECT 1 FROM reports WHERE reporter_id = ? AND target_id = ? AND target_type = ?`,
		report.ReporterID, report.TargetID, string(report.TargetType),
	).Scan(&exists)
	if err == nil {
		return 0, apperror.Conflict("report", "you have already reported this target")
	}
	if err != sql.ErrNoRows {
		return 0, fmt.Errorf("sqlite: checking existing report: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO reports (reporter_id, target_id, target_type, reason, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		report.ReporterID, report.TargetID, string(report.TargetType),
		report.Reason, report.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, apperror.Conflict("report", "you have already reported this target")
		}
		return 0, fmt.Errorf("sqlite: inserting report: %w", err)
	}

	var distinct int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT reporter_id) FROM reports
		 WHERE target_id = ? AND target_type = ?`,
		report.TargetID, string(report.TargetType),
	).Scan(&distinct)
	if err != nil {
		return 0, fmt.Errorf("sqlite: counting reporters: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("sqlite: committing report: %w", err)
	}
	return distinct, nil
}
