// Package snapshot records the slot names generated for each variable so
// later runs can be checked against them. Generated code is compared
// textually downstream, so any change in naming must be deliberate.
package snapshot

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	label      TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS slots (
	run_id    TEXT NOT NULL REFERENCES runs(id),
	base_name TEXT NOT NULL,
	position  INTEGER NOT NULL,
	name      TEXT NOT NULL,
	PRIMARY KEY (run_id, base_name, position)
);
CREATE INDEX IF NOT EXISTS slots_base_name ON slots(base_name);
`

// Store is a sqlite database of recorded slot names.
type Store struct {
	db *sql.DB
}

// Run is one recording session.
type Run struct {
	ID        uuid.UUID
	Label     string
	CreatedAt time.Time
}

// MismatchError reports a variable whose slot names differ from the recorded ones.
type MismatchError struct {
	BaseName string
	Want     []string
	Got      []string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("slot names of %s changed: recorded [%s], got [%s]",
		e.BaseName, strings.Join(e.Want, ", "), strings.Join(e.Got, ", "))
}

// Open opens (creating if needed) the snapshot database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening snapshot db %s: %w", path, err)
	}
	// sqlite allows a single writer
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating snapshot schema in %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// BeginRun registers a new recording session.
func (s *Store) BeginRun(ctx context.Context, label string) (Run, error) {
	run := Run{ID: uuid.New(), Label: label, CreatedAt: time.Now().UTC()}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, label, created_at) VALUES (?, ?, ?)`,
		run.ID.String(), run.Label, run.CreatedAt.UnixNano()); err != nil {
		return Run{}, fmt.Errorf("recording run: %w", err)
	}
	return run, nil
}

// Save records the slot names of one variable in run.
func (s *Store) Save(ctx context.Context, run Run, baseName string, components []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("saving %s: %w", baseName, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM slots WHERE run_id = ? AND base_name = ?`, run.ID.String(), baseName); err != nil {
		return fmt.Errorf("saving %s: %w", baseName, err)
	}
	for i, name := range components {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO slots (run_id, base_name, position, name) VALUES (?, ?, ?, ?)`,
			run.ID.String(), baseName, i, name); err != nil {
			return fmt.Errorf("saving %s: %w", baseName, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("saving %s: %w", baseName, err)
	}
	return nil
}

// Latest returns the most recently recorded slot names of baseName.
// ok is false if the variable was never recorded.
func (s *Store) Latest(ctx context.Context, baseName string) (components []string, ok bool, err error) {
	var runID string
	err = s.db.QueryRowContext(ctx, `
		SELECT r.id FROM runs r
		WHERE EXISTS (SELECT 1 FROM slots s WHERE s.run_id = r.id AND s.base_name = ?)
		ORDER BY r.created_at DESC, r.rowid DESC LIMIT 1`, baseName).Scan(&runID)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("looking up %s: %w", baseName, err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT name FROM slots WHERE run_id = ? AND base_name = ? ORDER BY position`, runID, baseName)
	if err != nil {
		return nil, false, fmt.Errorf("reading %s: %w", baseName, err)
	}
	defer rows.Close()

	components = []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, false, fmt.Errorf("reading %s: %w", baseName, err)
		}
		components = append(components, name)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("reading %s: %w", baseName, err)
	}
	return components, true, nil
}

// Verify compares components with the latest recording of baseName.
// Variables never recorded before pass.
func (s *Store) Verify(ctx context.Context, baseName string, components []string) error {
	want, ok, err := s.Latest(ctx, baseName)
	if err != nil || !ok {
		return err
	}
	if len(want) != len(components) {
		return &MismatchError{BaseName: baseName, Want: want, Got: components}
	}
	for i := range want {
		if want[i] != components[i] {
			return &MismatchError{BaseName: baseName, Want: want, Got: components}
		}
	}
	return nil
}

// Runs lists all recording sessions, newest first. Runs begun within one
// clock tick are ordered by insertion.
func (s *Store) Runs(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, label, created_at FROM runs ORDER BY created_at DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			id, label string
			stamp     int64
		)
		if err := rows.Scan(&id, &label, &stamp); err != nil {
			return nil, fmt.Errorf("listing runs: %w", err)
		}
		parsed, err := uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("run %q: %w", id, err)
		}
		runs = append(runs, Run{ID: parsed, Label: label, CreatedAt: time.Unix(0, stamp).UTC()})
	}
	return runs, rows.Err()
}
