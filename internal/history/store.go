// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package history records run reports in a SQLite database so past runs can
// be listed and inspected. History is write-mostly: nothing in a run consults
// it to skip or resume work.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/pagerefine/pkg/types"
)

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// DefaultLimit is the number of runs ListRuns returns when limit <= 0.
const DefaultLimit = 20

// ErrRunNotFound is returned by Report for an unknown run ID.
var ErrRunNotFound = errors.New("run not found")

// Store manages the history SQLite database.
type Store struct {
	db *sql.DB
}

// RunSummary is one row of ListRuns output.
type RunSummary struct {
	ID        string
	Prefix    string
	StartedAt time.Time
	Provider  types.ChatProvider
	Written   int
	Skipped   int
	Failed    int
	Aborted   bool
}

// NewStore opens or creates the history database at path, creating parent
// directories and the schema as needed.
func NewStore(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			prefix TEXT NOT NULL,
			started_at TEXT NOT NULL,
			finished_at TEXT,
			provider TEXT,
			strategy TEXT,
			steps TEXT,
			aborted INTEGER NOT NULL DEFAULT 0,
			error TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS results (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			idx INTEGER NOT NULL,
			url TEXT NOT NULL,
			status TEXT NOT NULL,
			output_path TEXT,
			title TEXT,
			error TEXT,
			PRIMARY KEY (run_id, idx)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_results_url ON results(url)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// SaveReport stores report and its per-URL results. Saving the same run ID
// again replaces the earlier record.
func (s *Store) SaveReport(ctx context.Context, report *types.RunReport) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stepsJSON, _ := json.Marshal(report.Steps)
	if _, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, report.ID); err != nil {
		return fmt.Errorf("replacing run: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, prefix, started_at, finished_at, provider, strategy, steps, aborted, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		report.ID, report.Prefix, formatTime(report.StartedAt), formatTime(report.FinishedAt),
		string(report.Provider), string(report.Strategy), string(stepsJSON),
		report.Aborted, report.Error,
	)
	if err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO results (run_id, idx, url, status, output_path, title, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range report.Results {
		if _, err := stmt.ExecContext(ctx,
			report.ID, r.Index, r.URL, string(r.Status), r.OutputPath, r.Title, r.Error,
		); err != nil {
			return fmt.Errorf("inserting result %d: %w", r.Index, err)
		}
	}

	return tx.Commit()
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT r.id, r.prefix, r.started_at, r.provider, r.aborted,
			COALESCE(SUM(CASE WHEN x.status = 'written' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN x.status = 'skipped' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN x.status = 'failed' THEN 1 ELSE 0 END), 0)
		 FROM runs r LEFT JOIN results x ON x.run_id = r.id
		 GROUP BY r.id
		 ORDER BY r.started_at DESC, r.id
		 LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var (
			sum      RunSummary
			started  string
			provider string
		)
		if err := rows.Scan(&sum.ID, &sum.Prefix, &started, &provider, &sum.Aborted,
			&sum.Written, &sum.Skipped, &sum.Failed); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		sum.StartedAt = parseTime(started)
		sum.Provider = types.ChatProvider(provider)
		out = append(out, sum)
	}
	return out, rows.Err()
}

// Report loads a full run report by ID.
func (s *Store) Report(ctx context.Context, id string) (*types.RunReport, error) {
	var (
		report                    types.RunReport
		started, finished         string
		provider, strategy, steps string
		errText                   sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, prefix, started_at, COALESCE(finished_at, ''), COALESCE(provider, ''),
			COALESCE(strategy, ''), COALESCE(steps, '[]'), aborted, error
		 FROM runs WHERE id = ?`, id,
	).Scan(&report.ID, &report.Prefix, &started, &finished, &provider, &strategy, &steps, &report.Aborted, &errText)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("querying run %s: %w", id, err)
	}
	report.StartedAt = parseTime(started)
	report.FinishedAt = parseTime(finished)
	report.Provider = types.ChatProvider(provider)
	report.Strategy = types.MarkdownStrategy(strategy)
	report.Error = errText.String
	if err := json.Unmarshal([]byte(steps), &report.Steps); err != nil {
		return nil, fmt.Errorf("decoding steps for run %s: %w", id, err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT idx, url, status, COALESCE(output_path, ''), COALESCE(title, ''), COALESCE(error, '')
		 FROM results WHERE run_id = ? ORDER BY idx`, id)
	if err != nil {
		return nil, fmt.Errorf("querying results: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var r types.URLResult
		var status string
		if err := rows.Scan(&r.Index, &r.URL, &status, &r.OutputPath, &r.Title, &r.Error); err != nil {
			return nil, fmt.Errorf("scanning result: %w", err)
		}
		r.Status = types.ResultStatus(status)
		report.Results = append(report.Results, r)
	}
	return &report, rows.Err()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
