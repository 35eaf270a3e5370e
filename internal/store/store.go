// Package store persists analysis runs in a SQLite database.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/KaramelBytes/tagdist-cli/internal/caption"
	"github.com/KaramelBytes/tagdist-cli/internal/distribution"
)

// ErrRunNotFound is returned when a run id is unknown.
var ErrRunNotFound = errors.New("run not found")

// Store wraps the SQLite handle.
type Store struct {
	db *sql.DB
}

// Run is one invocation of analyze or classify.
type Run struct {
	ID          string
	Kind        string
	Dataset     string
	Split       string
	Rows        int
	Threshold   float64
	MinResidual float64
	CreatedAt   time.Time
}

// NewRun returns a run with a fresh UUID and the current time.
func NewRun(kind, dataset, split string, rows int, opt distribution.Options) Run {
	return Run{
		ID:          uuid.NewString(),
		Kind:        kind,
		Dataset:     dataset,
		Split:       split,
		Rows:        rows,
		Threshold:   opt.Threshold,
		MinResidual: opt.MinResidual,
		CreatedAt:   time.Now().UTC(),
	}
}

// Attribute is the stored grouped distribution of one attribute.
type Attribute struct {
	Name     string
	Segments distribution.Grouped
}

// Open opens (or creates) the database at path with WAL mode enabled.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// Pragmas are per connection.
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA foreign_keys=ON"} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}
	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	kind TEXT NOT NULL,
	dataset TEXT NOT NULL,
	split TEXT,
	row_count INTEGER NOT NULL,
	threshold REAL,
	min_residual REAL,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS value_counts (
	run_id TEXT NOT NULL,
	attribute TEXT NOT NULL,
	position INTEGER NOT NULL,
	value TEXT NOT NULL,
	raw TEXT,
	missing INTEGER NOT NULL DEFAULT 0,
	count INTEGER NOT NULL,
	proportion REAL NOT NULL,
	cumulative REAL NOT NULL,
	PRIMARY KEY(run_id, attribute, position),
	FOREIGN KEY(run_id) REFERENCES runs(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS segments (
	run_id TEXT NOT NULL,
	attribute TEXT NOT NULL,
	position INTEGER NOT NULL,
	label TEXT NOT NULL,
	proportion REAL NOT NULL,
	PRIMARY KEY(run_id, attribute, position),
	FOREIGN KEY(run_id) REFERENCES runs(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS classifications (
	run_id TEXT NOT NULL,
	position INTEGER NOT NULL,
	filename TEXT NOT NULL,
	sleeves_type TEXT,
	neck_type TEXT,
	item TEXT,
	PRIMARY KEY(run_id, position),
	FOREIGN KEY(run_id) REFERENCES runs(id) ON DELETE CASCADE
);
`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

// SaveRun inserts or replaces the run row.
func (s *Store) SaveRun(ctx context.Context, r Run) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO runs(id, kind, dataset, split, row_count, threshold, min_residual, created_at)
VALUES(?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	kind=excluded.kind, dataset=excluded.dataset, split=excluded.split, row_count=excluded.row_count,
	threshold=excluded.threshold, min_residual=excluded.min_residual`,
		r.ID, r.Kind, r.Dataset, r.Split, r.Rows, r.Threshold, r.MinResidual, r.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	return nil
}

// SaveDistribution replaces the value counts and segments of one attribute.
func (s *Store) SaveDistribution(ctx context.Context, runID string, d *distribution.Distribution) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"value_counts", "segments"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE run_id=? AND attribute=?", runID, d.Attribute); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	for i, r := range d.Rows {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO value_counts(run_id, attribute, position, value, raw, missing, count, proportion, cumulative)
VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			runID, d.Attribute, i, r.Value, r.Raw, boolToInt(r.Missing), r.Count, r.Proportion, r.Cumulative); err != nil {
			return fmt.Errorf("insert value count: %w", err)
		}
	}
	for i, seg := range d.Segments {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO segments(run_id, attribute, position, label, proportion) VALUES(?, ?, ?, ?, ?)",
			runID, d.Attribute, i, seg.Label, seg.Proportion); err != nil {
			return fmt.Errorf("insert segment: %w", err)
		}
	}
	return tx.Commit()
}

// SaveClassifications replaces the caption results of a run.
func (s *Store) SaveClassifications(ctx context.Context, runID string, results []caption.Result) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM classifications WHERE run_id=?", runID); err != nil {
		return fmt.Errorf("clear classifications: %w", err)
	}
	for i, r := range results {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO classifications(run_id, position, filename, sleeves_type, neck_type, item)
VALUES(?, ?, ?, ?, ?, ?)`, runID, i, r.FileName, r.SleevesType, r.NeckType, r.Item); err != nil {
			return fmt.Errorf("insert classification: %w", err)
		}
	}
	return tx.Commit()
}

// GetRun loads one run by id.
func (s *Store) GetRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, kind, dataset, split, row_count, threshold, min_residual, created_at FROM runs WHERE id=?", id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return r, err
}

// Runs lists runs, newest first.
func (s *Store) Runs(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, kind, dataset, split, row_count, threshold, min_residual, created_at FROM runs ORDER BY created_at DESC")
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()
	var out []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Distributions returns the stored segments of a run, in insertion order.
func (s *Store) Distributions(ctx context.Context, runID string) ([]Attribute, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT attribute, label, proportion FROM segments WHERE run_id=? ORDER BY rowid", runID)
	if err != nil {
		return nil, fmt.Errorf("query segments: %w", err)
	}
	defer rows.Close()
	var out []Attribute
	index := map[string]int{}
	for rows.Next() {
		var attr string
		var seg distribution.Segment
		if err := rows.Scan(&attr, &seg.Label, &seg.Proportion); err != nil {
			return nil, fmt.Errorf("scan segment: %w", err)
		}
		i, ok := index[attr]
		if !ok {
			i = len(out)
			index[attr] = i
			out = append(out, Attribute{Name: attr})
		}
		out[i].Segments = append(out[i].Segments, seg)
	}
	return out, rows.Err()
}

// Classifications returns the caption results of a run in input order.
func (s *Store) Classifications(ctx context.Context, runID string) ([]caption.Result, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT filename, sleeves_type, neck_type, item FROM classifications WHERE run_id=? ORDER BY position", runID)
	if err != nil {
		return nil, fmt.Errorf("query classifications: %w", err)
	}
	defer rows.Close()
	var out []caption.Result
	for rows.Next() {
		var r caption.Result
		if err := rows.Scan(&r.FileName, &r.SleevesType, &r.NeckType, &r.Item); err != nil {
			return nil, fmt.Errorf("scan classification: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (Run, error) {
	var r Run
	var split sql.NullString
	var created string
	if err := sc.Scan(&r.ID, &r.Kind, &r.Dataset, &split, &r.Rows, &r.Threshold, &r.MinResidual, &created); err != nil {
		return Run{}, err
	}
	r.Split = split.String
	t, err := time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return Run{}, fmt.Errorf("parse created_at: %w", err)
	}
	r.CreatedAt = t
	return r, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
