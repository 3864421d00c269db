// Package history keeps an append-only SQLite journal of grade record
// transitions so a grader can see when and how a score changed.
package history

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

const schemaVersion = 1

// ErrSchemaMismatch indicates the database was written by an incompatible
// version.
var ErrSchemaMismatch = errors.New("history: schema version mismatch")

// Actions recorded in the journal.
const (
	ActionPersist   = "persist"
	ActionRecalc    = "recalculate"
	ActionMapping   = "mapping"
	ActionDefaults  = "defaults"
	ActionFullScore = "full-score"
)

// Event is one journal row.
type Event struct {
	ID             int64
	SessionID      string
	NetID          string
	Action         string
	Status         string
	Score          *float64
	TotalDeduction float64
	Detail         string
	At             time.Time
}

// Journal is the SQLite-backed event log. A nil Journal drops writes.
type Journal struct {
	db        *sql.DB
	path      string
	sessionID string
	now       func() time.Time
}

// Open creates or connects to the journal database at path.
func Open(ctx context.Context, path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("history: ensure dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("history: open sqlite db: %w", err)
	}
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("history: apply pragma %q: %w", pragma, execErr)
		}
	}
	j := &Journal{db: db, path: path, sessionID: uuid.NewString(), now: time.Now}
	if err := j.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return j, nil
}

func (j *Journal) initSchema(ctx context.Context) error {
	var tableExists int
	err := j.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("history: check schema_version table: %w", err)
	}
	if tableExists == 0 {
		return j.createSchema(ctx)
	}
	var version int
	if err := j.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("history: read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s)",
			ErrSchemaMismatch, version, schemaVersion, j.path)
	}
	return nil
}

func (j *Journal) createSchema(ctx context.Context) error {
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("history: begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("history: create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("history: record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("history: commit schema: %w", err)
	}
	return nil
}

// Path returns the database file.
func (j *Journal) Path() string {
	if j == nil {
		return ""
	}
	return j.path
}

// SessionID identifies the process that opened the journal.
func (j *Journal) SessionID() string {
	if j == nil {
		return ""
	}
	return j.sessionID
}

// Record appends an event, filling in the session id and timestamp.
func (j *Journal) Record(ctx context.Context, ev Event) error {
	if j == nil {
		return nil
	}
	if strings.TrimSpace(ev.NetID) == "" {
		return errors.New("history: event needs a net id")
	}
	if ev.At.IsZero() {
		ev.At = j.now()
	}
	var score sql.NullFloat64
	if ev.Score != nil {
		score = sql.NullFloat64{Float64: *ev.Score, Valid: true}
	}
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO grade_events (session_id, netid, action, status, score, total_deduction, detail, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		j.sessionID, ev.NetID, ev.Action, ev.Status, score, ev.TotalDeduction, ev.Detail,
		ev.At.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("history: record %s: %w", ev.NetID, err)
	}
	return nil
}

// List returns events newest first. An empty netid lists every student;
// limit <= 0 means no limit.
func (j *Journal) List(ctx context.Context, netid string, limit int) ([]Event, error) {
	if j == nil {
		return nil, nil
	}
	query := `SELECT id, session_id, netid, action, status, score, total_deduction, detail, created_at
		FROM grade_events`
	var args []any
	if netid = strings.TrimSpace(netid); netid != "" {
		query += " WHERE netid = ?"
		args = append(args, netid)
	}
	query += " ORDER BY id DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("history: list: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			ev      Event
			score   sql.NullFloat64
			created string
		)
		if err := rows.Scan(&ev.ID, &ev.SessionID, &ev.NetID, &ev.Action, &ev.Status, &score, &ev.TotalDeduction, &ev.Detail, &created); err != nil {
			return nil, fmt.Errorf("history: scan: %w", err)
		}
		if score.Valid {
			v := score.Float64
			ev.Score = &v
		}
		if ts, err := time.Parse(time.RFC3339Nano, created); err == nil {
			ev.At = ts
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: iterate: %w", err)
	}
	return events, nil
}

// Clear deletes every event. Reset uses it so the journal matches the
// emptied state file.
func (j *Journal) Clear(ctx context.Context) error {
	if j == nil {
		return nil
	}
	if _, err := j.db.ExecContext(ctx, "DELETE FROM grade_events"); err != nil {
		return fmt.Errorf("history: clear: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}
