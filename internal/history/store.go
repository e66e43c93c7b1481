// Package history keeps a journal of status transitions and lifecycle runs in
// SQLite.
package history

import (
	"context"
	"database/sql"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"git.home.luguber.info/inful/mcm/internal/foundation/errors"
)

// Entry is one journaled transition.
type Entry struct {
	ID        int64
	RunID     string
	Operation string
	Meta      string
	Package   string
	From      string
	To        string
	Mechanism string
	At        time.Time
}

// Run is one journaled lifecycle operation.
type Run struct {
	RunID       string
	Operation   string
	Started     time.Time
	Finished    time.Time
	Transitions int
	Warnings    int
	Error       string
}

// Filter narrows Entries. Zero values match everything.
type Filter struct {
	Meta    string
	Package string
	RunID   string
	Limit   int
}

// Store is a SQLite-backed journal.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Open opens or creates the journal at path. Use ":memory:" for tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.HistoryError("could not open history database").WithCause(err).WithContext("path", path).Build()
	}
	// A single connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.initialize(); err != nil {
		_ = db.Close()
		return nil, errors.HistoryError("failed to initialize history schema").WithCause(err).Build()
	}
	return s, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS transitions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		operation TEXT NOT NULL,
		meta_package TEXT NOT NULL,
		package TEXT NOT NULL,
		from_status TEXT NOT NULL,
		to_status TEXT NOT NULL,
		mechanism TEXT,
		timestamp INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_transitions_pkg ON transitions(meta_package, package);
	CREATE INDEX IF NOT EXISTS idx_transitions_run ON transitions(run_id);
	CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT PRIMARY KEY,
		operation TEXT NOT NULL,
		started INTEGER NOT NULL,
		finished INTEGER NOT NULL,
		transitions INTEGER NOT NULL,
		warnings INTEGER NOT NULL,
		error TEXT
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// AppendTransition journals e. ID is ignored.
func (s *Store) AppendTransition(ctx context.Context, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO transitions (run_id, operation, meta_package, package, from_status, to_status, mechanism, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.RunID, e.Operation, e.Meta, e.Package, e.From, e.To, e.Mechanism, e.At.UnixNano(),
	)
	if err != nil {
		return errors.HistoryError("failed to append transition").WithCause(err).Build()
	}
	return nil
}

// AppendRun journals r, replacing an earlier row for the same run.
func (s *Store) AppendRun(ctx context.Context, r Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO runs (run_id, operation, started, finished, transitions, warnings, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.Operation, r.Started.UnixNano(), r.Finished.UnixNano(), r.Transitions, r.Warnings, r.Error,
	)
	if err != nil {
		return errors.HistoryError("failed to append run").WithCause(err).Build()
	}
	return nil
}

// Entries returns matching transitions, newest first.
func (s *Store) Entries(ctx context.Context, f Filter) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		where []string
		args  []any
	)
	if f.Meta != "" {
		where = append(where, "meta_package = ?")
		args = append(args, f.Meta)
	}
	if f.Package != "" {
		where = append(where, "package = ?")
		args = append(args, f.Package)
	}
	if f.RunID != "" {
		where = append(where, "run_id = ?")
		args = append(args, f.RunID)
	}
	q := "SELECT id, run_id, operation, meta_package, package, from_status, to_status, mechanism, timestamp FROM transitions"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY id DESC"
	if f.Limit > 0 {
		q += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, errors.HistoryError("failed to query transitions").WithCause(err).Build()
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e    Entry
			mech sql.NullString
			ts   int64
		)
		if err := rows.Scan(&e.ID, &e.RunID, &e.Operation, &e.Meta, &e.Package, &e.From, &e.To, &mech, &ts); err != nil {
			return nil, errors.HistoryError("failed to scan transition").WithCause(err).Build()
		}
		e.Mechanism = mech.String
		e.At = time.Unix(0, ts)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.HistoryError("failed to iterate transitions").WithCause(err).Build()
	}
	return out, nil
}

// Runs returns the most recent runs, newest first.
func (s *Store) Runs(ctx context.Context, limit int) ([]Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q := "SELECT run_id, operation, started, finished, transitions, warnings, error FROM runs ORDER BY started DESC"
	var args []any
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, errors.HistoryError("failed to query runs").WithCause(err).Build()
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var (
			r                 Run
			started, finished int64
			msg               sql.NullString
		)
		if err := rows.Scan(&r.RunID, &r.Operation, &started, &finished, &r.Transitions, &r.Warnings, &msg); err != nil {
			return nil, errors.HistoryError("failed to scan run").WithCause(err).Build()
		}
		r.Started = time.Unix(0, started)
		r.Finished = time.Unix(0, finished)
		r.Error = msg.String
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.HistoryError("failed to iterate runs").WithCause(err).Build()
	}
	return out, nil
}

// Close closes the database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
