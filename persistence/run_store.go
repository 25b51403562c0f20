package persistence

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

	"github.com/lexcodex/orchestrate/framework"
)

// ErrRunNotFound is returned by Get for unknown run IDs.
var ErrRunNotFound = errors.New("run not found")

// RunRecord is one persisted agent run.
type RunRecord struct {
	ID         string               `json:"id"`
	Task       string               `json:"task"`
	Agent      string               `json:"agent"`
	Approach   string               `json:"approach,omitempty"`
	Answer     string               `json:"answer"`
	Success    bool                 `json:"success"`
	Iterations int                  `json:"iterations"`
	CreatedAt  time.Time            `json:"created_at"`
	Result     *framework.RunResult `json:"result,omitempty"`
}

// RunStore persists run history.
type RunStore interface {
	Save(ctx context.Context, agent string, result *framework.RunResult) (*RunRecord, error)
	Get(ctx context.Context, id string) (*RunRecord, error)
	List(ctx context.Context, limit int) ([]RunRecord, error)
	Close() error
}

// SQLiteRunStore keeps run history in a SQLite database.
type SQLiteRunStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteRunStore opens/creates the database at dbPath.
func NewSQLiteRunStore(dbPath string) (*SQLiteRunStore, error) {
	if dbPath == "" {
		return nil, errors.New("history path required")
	}
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}
	// A single connection keeps ":memory:" databases shared across calls.
	db.SetMaxOpenConns(1)
	store := &SQLiteRunStore{db: db, now: time.Now}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteRunStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		task TEXT NOT NULL,
		agent TEXT NOT NULL,
		approach TEXT,
		answer TEXT,
		success BOOLEAN,
		iterations INTEGER,
		result TEXT,
		created_at TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close releases the underlying database handle.
func (s *SQLiteRunStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Save upserts a run. Results without an ID get a fresh one.
func (s *SQLiteRunStore) Save(ctx context.Context, agent string, result *framework.RunResult) (*RunRecord, error) {
	if result == nil {
		return nil, errors.New("run result required")
	}
	if result.ID == "" {
		result.ID = framework.NewRunID()
	}
	payload, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("encode run: %w", err)
	}
	record := &RunRecord{
		ID:         result.ID,
		Task:       result.Task,
		Agent:      agent,
		Approach:   string(result.Approach),
		Answer:     result.FinalAnswer,
		Success:    result.Success,
		Iterations: result.Iterations,
		CreatedAt:  s.now().UTC(),
		Result:     result,
	}
	query := `
	INSERT INTO runs (id, task, agent, approach, answer, success, iterations, result, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		task=excluded.task,
		agent=excluded.agent,
		approach=excluded.approach,
		answer=excluded.answer,
		success=excluded.success,
		iterations=excluded.iterations,
		result=excluded.result
	`
	_, err = s.db.ExecContext(ctx, query,
		record.ID, record.Task, record.Agent, record.Approach, record.Answer,
		record.Success, record.Iterations, string(payload), record.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("save run %s: %w", record.ID, err)
	}
	return record, nil
}

// Get loads a run with its full result.
func (s *SQLiteRunStore) Get(ctx context.Context, id string) (*RunRecord, error) {
	row := s.db.QueryRowContext(ctx, `
	SELECT id, task, agent, approach, answer, success, iterations, created_at, result
	FROM runs WHERE id = ?`, id)
	var (
		record  RunRecord
		payload sql.NullString
	)
	err := row.Scan(&record.ID, &record.Task, &record.Agent, &record.Approach, &record.Answer,
		&record.Success, &record.Iterations, &record.CreatedAt, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	if payload.Valid && payload.String != "" {
		var result framework.RunResult
		if err := json.Unmarshal([]byte(payload.String), &result); err != nil {
			return nil, fmt.Errorf("decode run %s: %w", id, err)
		}
		record.Result = &result
	}
	return &record, nil
}

// List returns the most recent runs first, without their full results. A
// non-positive limit defaults to 20.
func (s *SQLiteRunStore) List(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
	SELECT id, task, agent, approach, answer, success, iterations, created_at
	FROM runs ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var records []RunRecord
	for rows.Next() {
		var record RunRecord
		if err := rows.Scan(&record.ID, &record.Task, &record.Agent, &record.Approach, &record.Answer,
			&record.Success, &record.Iterations, &record.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}
