// Package store keeps the run history in a SQLite database: one row per
// pipeline run and one row per stage attempt.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Run is one pipeline execution.
type Run struct {
	WorkflowID    string
	Status        string
	Success       bool
	Language      string
	Framework     string
	Database      string
	BuildTool     string
	FilesCount    int
	ErrorsCount   int
	RepoStatus    string
	LocalPath     string
	StartedAt     time.Time
	FinishedAt    time.Time
	DurationMilli int64
}

// Duration returns the run duration.
func (r Run) Duration() time.Duration {
	return time.Duration(r.DurationMilli) * time.Millisecond
}

// AgentOutput is one stage attempt within a run.
type AgentOutput struct {
	Sequence      int
	AgentName     string
	Status        string
	ErrorMessage  string
	DurationMilli int64
	InputTokens   int
	OutputTokens  int
}

// Store wraps the history database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path and migrates the schema.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" && path != ":memory:" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating history directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating history database: %w", err)
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		workflow_id TEXT PRIMARY KEY,
		status TEXT NOT NULL,
		success INTEGER NOT NULL DEFAULT 0,
		language TEXT NOT NULL DEFAULT '',
		framework TEXT NOT NULL DEFAULT '',
		database_name TEXT NOT NULL DEFAULT '',
		build_tool TEXT NOT NULL DEFAULT '',
		files_count INTEGER NOT NULL DEFAULT 0,
		errors_count INTEGER NOT NULL DEFAULT 0,
		repo_status TEXT NOT NULL DEFAULT '',
		local_path TEXT NOT NULL DEFAULT '',
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL,
		duration_ms INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS agent_outputs (
		workflow_id TEXT NOT NULL REFERENCES runs(workflow_id) ON DELETE CASCADE,
		sequence_num INTEGER NOT NULL,
		agent_name TEXT NOT NULL,
		status TEXT NOT NULL,
		error_message TEXT NOT NULL DEFAULT '',
		duration_ms INTEGER NOT NULL DEFAULT 0,
		input_tokens INTEGER NOT NULL DEFAULT 0,
		output_tokens INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (workflow_id, sequence_num)
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// RecordRun inserts or replaces a run and its stage attempts in one
// transaction.
func (s *Store) RecordRun(ctx context.Context, run Run, outputs []AgentOutput) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO runs (workflow_id, status, success, language, framework, database_name,
			build_tool, files_count, errors_count, repo_status, local_path, started_at, finished_at, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.WorkflowID, run.Status, boolToInt(run.Success), run.Language, run.Framework, run.Database,
		run.BuildTool, run.FilesCount, run.ErrorsCount, run.RepoStatus, run.LocalPath,
		formatTime(run.StartedAt), formatTime(run.FinishedAt), run.DurationMilli,
	)
	if err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM agent_outputs WHERE workflow_id = ?`, run.WorkflowID); err != nil {
		return fmt.Errorf("clearing agent outputs: %w", err)
	}
	for _, o := range outputs {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO agent_outputs (workflow_id, sequence_num, agent_name, status, error_message,
				duration_ms, input_tokens, output_tokens)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			run.WorkflowID, o.Sequence, o.AgentName, o.Status, o.ErrorMessage,
			o.DurationMilli, o.InputTokens, o.OutputTokens,
		)
		if err != nil {
			return fmt.Errorf("inserting agent output %s: %w", o.AgentName, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing run: %w", err)
	}
	return nil
}

// ListRuns returns up to limit runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT workflow_id, status, success, language, framework, database_name, build_tool,
			files_count, errors_count, repo_status, local_path, started_at, finished_at, duration_ms
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r                 Run
			success           int
			started, finished string
		)
		err := rows.Scan(&r.WorkflowID, &r.Status, &success, &r.Language, &r.Framework, &r.Database,
			&r.BuildTool, &r.FilesCount, &r.ErrorsCount, &r.RepoStatus, &r.LocalPath,
			&started, &finished, &r.DurationMilli)
		if err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		r.Success = success != 0
		r.StartedAt = parseTime(started)
		r.FinishedAt = parseTime(finished)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// AgentOutputs returns the stage attempts of one run in execution order.
func (s *Store) AgentOutputs(ctx context.Context, workflowID string) ([]AgentOutput, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT sequence_num, agent_name, status, error_message, duration_ms, input_tokens, output_tokens
		 FROM agent_outputs WHERE workflow_id = ? ORDER BY sequence_num`, workflowID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying agent outputs: %w", err)
	}
	defer rows.Close()

	var out []AgentOutput
	for rows.Next() {
		var o AgentOutput
		if err := rows.Scan(&o.Sequence, &o.AgentName, &o.Status, &o.ErrorMessage,
			&o.DurationMilli, &o.InputTokens, &o.OutputTokens); err != nil {
			return nil, fmt.Errorf("scanning agent output: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
