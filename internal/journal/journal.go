// Package journal persists terminal command transitions to SQLite for the
// history CLI and post-mortems. The live queue never touches disk.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/mattjoyce/overviewd/internal/command"
	"github.com/mattjoyce/overviewd/internal/log"
)

// Entry is one journaled command.
type Entry struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	Status      string    `json:"status"`
	Reason      string    `json:"reason,omitempty"`
	Seq         uint64    `json:"seq"`
	Focus       int       `json:"focus"`
	SubmittedAt time.Time `json:"submitted_at"`
	FinishedAt  time.Time `json:"finished_at"`
}

// Journal appends terminal transitions to the command_log table.
type Journal struct {
	db     *sql.DB
	logger *slog.Logger
}

func New(db *sql.DB) *Journal {
	return &Journal{
		db:     db,
		logger: log.WithComponent("journal"),
	}
}

// Record appends one terminal transition. Implements the dispatcher's
// Recorder capability.
func (j *Journal) Record(ctx context.Context, cmd *command.Command, reason string) error {
	var reasonVal *string
	if reason != "" {
		reasonVal = &reason
	}

	_, err := j.db.ExecContext(ctx, `
		INSERT INTO command_log (id, type, status, reason, seq, focus, submitted_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		cmd.ID,
		string(cmd.Type),
		string(cmd.Status()),
		reasonVal,
		cmd.Seq,
		cmd.Focus(),
		cmd.CreatedAt.UTC().Format(time.RFC3339Nano),
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert command_log: %w", err)
	}
	return nil
}

// Recent returns the newest entries, most recent first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := j.db.QueryContext(ctx, `
		SELECT id, type, status, reason, seq, focus, submitted_at, finished_at
		FROM command_log
		ORDER BY finished_at DESC, seq DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query command_log: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e           Entry
			reason      sql.NullString
			submittedAt string
			finishedAt  string
		)
		if err := rows.Scan(&e.ID, &e.Type, &e.Status, &reason, &e.Seq, &e.Focus, &submittedAt, &finishedAt); err != nil {
			return nil, fmt.Errorf("scan command_log row: %w", err)
		}
		if reason.Valid {
			e.Reason = reason.String
		}
		if t, err := time.Parse(time.RFC3339Nano, submittedAt); err == nil {
			e.SubmittedAt = t
		}
		if t, err := time.Parse(time.RFC3339Nano, finishedAt); err == nil {
			e.FinishedAt = t
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Prune deletes entries older than retention.
func (j *Journal) Prune(ctx context.Context, retention time.Duration) error {
	if retention <= 0 {
		return nil
	}
	cutoff := time.Now().UTC().Add(-retention).Format(time.RFC3339Nano)

	res, err := j.db.ExecContext(ctx, `DELETE FROM command_log WHERE finished_at < ?`, cutoff)
	if err != nil {
		return fmt.Errorf("prune command_log: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		j.logger.Debug("pruned journal entries", "count", n)
	}
	return nil
}
