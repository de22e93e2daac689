// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package journal keeps a per-vault history of sync cycles in SQLite. Every
// cycle leaves a row, whether it completed, completed with note failures, or
// aborted before writing anything, so "what happened overnight" is always
// answerable from the CLI.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/arbaaz/klarity-sync/pkg/types"
)

const dbFile = "journal.db"

// Journal manages the cycle history database.
type Journal struct {
	db *sql.DB
}

// Open opens or creates the journal database at dir/journal.db, creating dir
// and the schema as needed.
func Open(dir string) (*Journal, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating journal directory: %w", err)
	}

	dbPath := filepath.Join(dir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening journal database: %w", err)
	}

	j := &Journal{db: db}
	if err := j.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating journal schema: %w", err)
	}
	return j, nil
}

// Close releases the database connection.
func (j *Journal) Close() error {
	return j.db.Close()
}

func (j *Journal) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS cycles (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			started_by TEXT NOT NULL,
			started_at TEXT NOT NULL,
			finished_at TEXT NOT NULL,
			written INTEGER NOT NULL,
			failed INTEGER NOT NULL,
			error_kind TEXT NOT NULL DEFAULT '',
			error TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS note_failures (
			cycle_id INTEGER NOT NULL REFERENCES cycles(id) ON DELETE CASCADE,
			note_id TEXT NOT NULL,
			title TEXT,
			reason TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_note_failures_cycle ON note_failures(cycle_id)`,
	}

	for _, stmt := range statements {
		if _, err := j.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Entry is one journaled cycle.
type Entry struct {
	ID         int64
	Trigger    types.Trigger
	StartedAt  time.Time
	FinishedAt time.Time
	Written    int
	Failed     int
	// ErrorKind and Error are set only for cycles that aborted before the
	// write phase.
	ErrorKind string
	Error     string
}

// Completed reports whether the cycle reached the write phase.
func (e Entry) Completed() bool { return e.Error == "" }

// RecordSummary journals a cycle that reached the write phase, together with
// its per-note failures.
func (j *Journal) RecordSummary(ctx context.Context, sum types.Summary) error {
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO cycles (started_by, started_at, finished_at, written, failed)
		 VALUES (?, ?, ?, ?, ?)`,
		string(sum.Trigger),
		sum.StartedAt.UTC().Format(time.RFC3339Nano),
		sum.FinishedAt.UTC().Format(time.RFC3339Nano),
		sum.Written,
		len(sum.Failures),
	)
	if err != nil {
		return fmt.Errorf("inserting cycle: %w", err)
	}

	cycleID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading cycle id: %w", err)
	}

	if len(sum.Failures) > 0 {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO note_failures (cycle_id, note_id, title, reason) VALUES (?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("preparing failure insert: %w", err)
		}
		defer stmt.Close()

		for _, f := range sum.Failures {
			if _, err := stmt.ExecContext(ctx, cycleID, f.NoteID, f.Title, f.Reason); err != nil {
				return fmt.Errorf("inserting failure for note %s: %w", f.NoteID, err)
			}
		}
	}

	return tx.Commit()
}

// RecordAborted journals a cycle that failed before writing anything, with
// the classified error kind and display message.
func (j *Journal) RecordAborted(ctx context.Context, trigger types.Trigger, startedAt time.Time, kind, message string) error {
	if kind == "" {
		kind = "unknown"
	}
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO cycles (started_by, started_at, finished_at, written, failed, error_kind, error)
		 VALUES (?, ?, ?, 0, 0, ?, ?)`,
		string(trigger),
		startedAt.UTC().Format(time.RFC3339Nano),
		time.Now().UTC().Format(time.RFC3339Nano),
		kind,
		message,
	)
	if err != nil {
		return fmt.Errorf("inserting aborted cycle: %w", err)
	}
	return nil
}

// Recent returns up to limit cycles, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := j.db.QueryContext(ctx,
		`SELECT id, started_by, started_at, finished_at, written, failed, error_kind, error
		 FROM cycles ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying cycles: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e          Entry
			trigger    string
			startedAt  string
			finishedAt string
		)
		if err := rows.Scan(&e.ID, &trigger, &startedAt, &finishedAt, &e.Written, &e.Failed, &e.ErrorKind, &e.Error); err != nil {
			return nil, fmt.Errorf("scanning cycle: %w", err)
		}
		e.Trigger = types.Trigger(trigger)
		if e.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt); err != nil {
			return nil, fmt.Errorf("parsing started_at: %w", err)
		}
		if e.FinishedAt, err = time.Parse(time.RFC3339Nano, finishedAt); err != nil {
			return nil, fmt.Errorf("parsing finished_at: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Failures returns the per-note failures journaled for one cycle.
func (j *Journal) Failures(ctx context.Context, cycleID int64) ([]types.NoteFailure, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT note_id, title, reason FROM note_failures WHERE cycle_id = ? ORDER BY rowid`, cycleID)
	if err != nil {
		return nil, fmt.Errorf("querying failures: %w", err)
	}
	defer rows.Close()

	var failures []types.NoteFailure
	for rows.Next() {
		var f types.NoteFailure
		if err := rows.Scan(&f.NoteID, &f.Title, &f.Reason); err != nil {
			return nil, fmt.Errorf("scanning failure: %w", err)
		}
		failures = append(failures, f)
	}
	return failures, rows.Err()
}

// LastCompleted returns the finish time of the most recent cycle that
// reached the write phase. ok is false when no such cycle exists.
func (j *Journal) LastCompleted(ctx context.Context) (t time.Time, ok bool, err error) {
	var finishedAt string
	err = j.db.QueryRowContext(ctx,
		`SELECT finished_at FROM cycles WHERE error = '' ORDER BY id DESC LIMIT 1`,
	).Scan(&finishedAt)
	switch {
	case err == sql.ErrNoRows:
		return time.Time{}, false, nil
	case err != nil:
		return time.Time{}, false, fmt.Errorf("querying last completed cycle: %w", err)
	}

	t, err = time.Parse(time.RFC3339Nano, finishedAt)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parsing finished_at: %w", err)
	}
	return t, true, nil
}

// Prune deletes all but the newest keep cycles and returns how many were
// removed. Failures cascade with their cycles.
func (j *Journal) Prune(ctx context.Context, keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}
	res, err := j.db.ExecContext(ctx,
		`DELETE FROM cycles WHERE id NOT IN (SELECT id FROM cycles ORDER BY id DESC LIMIT ?)`, keep)
	if err != nil {
		return 0, fmt.Errorf("pruning cycles: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting pruned cycles: %w", err)
	}
	return n, nil
}
