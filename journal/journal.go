// Package journal persists agent executions and their steps in SQLite.
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// ErrNotInitialized is returned by methods of a nil or closed Journal.
var ErrNotInitialized = errors.New("journal not initialized")

// Journal is a SQLite backed execution log. It is safe for concurrent use.
type Journal struct {
	db *sql.DB
}

// Execution is one Execute call.
type Execution struct {
	ID           string `json:"id"`
	Task         string `json:"task"`
	State        string `json:"state"`
	Result       string `json:"result"`
	Iterations   int    `json:"iterations"`
	StartedAtMs  int64  `json:"started_at_unix_ms"`
	FinishedAtMs int64  `json:"finished_at_unix_ms"`
}

// Step is one Think-Act-Observe iteration.
type Step struct {
	ExecutionID string         `json:"execution_id"`
	Iteration   int            `json:"iteration"`
	Thought     string         `json:"thought"`
	Action      string         `json:"action"`
	Params      map[string]any `json:"params,omitempty"`
	Observation string         `json:"observation"`
	IsError     bool           `json:"is_error"`
	CreatedAtMs int64          `json:"created_at_unix_ms"`
}

// Open opens (and creates) the journal database at path. ":memory:" is
// accepted for an ephemeral journal.
func Open(path string) (*Journal, error) {
	p := strings.TrimSpace(path)
	if p == "" {
		return nil, errors.New("missing journal path")
	}
	if p != ":memory:" {
		p = filepath.Clean(p)
		if err := os.MkdirAll(filepath.Dir(p), 0o700); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", p)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Journal{db: db}, nil
}

// Close releases the database.
func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}

// Begin records the start of an execution and returns its id.
func (j *Journal) Begin(ctx context.Context, task string) (string, error) {
	if j == nil || j.db == nil {
		return "", ErrNotInitialized
	}
	id := uuid.NewString()
	_, err := j.db.ExecContext(ctx, `
INSERT INTO executions (id, task, state, result, iterations, started_at_unix_ms, finished_at_unix_ms)
VALUES (?, ?, 'running', '', 0, ?, 0)
`, id, task, nowMs())
	if err != nil {
		return "", fmt.Errorf("begin execution: %w", err)
	}
	return id, nil
}

// RecordStep appends a step to execution step.ExecutionID.
func (j *Journal) RecordStep(ctx context.Context, step Step) error {
	if j == nil || j.db == nil {
		return ErrNotInitialized
	}
	params := "{}"
	if len(step.Params) > 0 {
		b, err := json.Marshal(step.Params)
		if err != nil {
			return fmt.Errorf("encode step params: %w", err)
		}
		params = string(b)
	}
	created := step.CreatedAtMs
	if created == 0 {
		created = nowMs()
	}
	_, err := j.db.ExecContext(ctx, `
INSERT INTO steps (execution_id, iteration, thought, action, params_json, observation, is_error, created_at_unix_ms)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`, step.ExecutionID, step.Iteration, step.Thought, step.Action, params, step.Observation, boolToInt(step.IsError), created)
	if err != nil {
		return fmt.Errorf("record step: %w", err)
	}
	return nil
}

// Finish records the terminal state of an execution.
func (j *Journal) Finish(ctx context.Context, id, state, result string, iterations int) error {
	if j == nil || j.db == nil {
		return ErrNotInitialized
	}
	res, err := j.db.ExecContext(ctx, `
UPDATE executions SET state = ?, result = ?, iterations = ?, finished_at_unix_ms = ?
WHERE id = ?
`, state, result, iterations, nowMs(), id)
	if err != nil {
		return fmt.Errorf("finish execution: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("finish execution: unknown id %s", id)
	}
	return nil
}

// Executions returns the most recent executions, newest first.
func (j *Journal) Executions(ctx context.Context, limit int) ([]Execution, error) {
	if j == nil || j.db == nil {
		return nil, ErrNotInitialized
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := j.db.QueryContext(ctx, `
SELECT id, task, state, result, iterations, started_at_unix_ms, finished_at_unix_ms
FROM executions
ORDER BY started_at_unix_ms DESC, rowid DESC
LIMIT ?
`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Execution, 0, limit)
	for rows.Next() {
		var e Execution
		if err := rows.Scan(&e.ID, &e.Task, &e.State, &e.Result, &e.Iterations, &e.StartedAtMs, &e.FinishedAtMs); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Steps returns the steps of an execution in iteration order.
func (j *Journal) Steps(ctx context.Context, executionID string) ([]Step, error) {
	if j == nil || j.db == nil {
		return nil, ErrNotInitialized
	}
	rows, err := j.db.QueryContext(ctx, `
SELECT execution_id, iteration, thought, action, params_json, observation, is_error, created_at_unix_ms
FROM steps
WHERE execution_id = ?
ORDER BY iteration ASC, id ASC
`, executionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Step
	for rows.Next() {
		var (
			s       Step
			params  string
			isError int
		)
		if err := rows.Scan(&s.ExecutionID, &s.Iteration, &s.Thought, &s.Action, &params, &s.Observation, &isError, &s.CreatedAtMs); err != nil {
			return nil, err
		}
		if params != "" && params != "{}" {
			if err := json.Unmarshal([]byte(params), &s.Params); err != nil {
				return nil, fmt.Errorf("decode step params: %w", err)
			}
		}
		s.IsError = isError != 0
		out = append(out, s)
	}
	return out, rows.Err()
}

func initSchema(db *sql.DB) error {
	if _, err := db.Exec(`PRAGMA journal_mode=WAL;`); err != nil {
		return fmt.Errorf("pragma journal_mode: %w", err)
	}
	if _, err := db.Exec(`PRAGMA busy_timeout=3000;`); err != nil {
		return fmt.Errorf("pragma busy_timeout: %w", err)
	}
	_, err := db.Exec(`
CREATE TABLE IF NOT EXISTS executions (
  id TEXT PRIMARY KEY,
  task TEXT NOT NULL,
  state TEXT NOT NULL,
  result TEXT NOT NULL DEFAULT '',
  iterations INTEGER NOT NULL DEFAULT 0,
  started_at_unix_ms INTEGER NOT NULL,
  finished_at_unix_ms INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS steps (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  execution_id TEXT NOT NULL REFERENCES executions(id),
  iteration INTEGER NOT NULL,
  thought TEXT NOT NULL,
  action TEXT NOT NULL,
  params_json TEXT NOT NULL DEFAULT '{}',
  observation TEXT NOT NULL DEFAULT '',
  is_error INTEGER NOT NULL DEFAULT 0,
  created_at_unix_ms INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_steps_execution ON steps(execution_id, iteration);
`)
	if err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

func nowMs() int64 { return time.Now().UnixMilli() }

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
