package workflow

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"maestro-ai/internal/domain"
)

// SQLiteRunStore implements domain.RunStore using SQLite. Results and errors
// are stored as JSON columns; the store never feeds back into engine
// behavior.
type SQLiteRunStore struct {
	db *sql.DB
}

// NewSQLiteRunStore opens (or creates) a SQLite database at dbPath and runs
// the schema migration.
func NewSQLiteRunStore(dbPath string) (*SQLiteRunStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open run db: %w", err)
	}
	// WAL mode for better concurrent reads.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate run db: %w", err)
	}
	return &SQLiteRunStore{db: db}, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS workflow_runs (
			id          TEXT PRIMARY KEY,
			workflow    TEXT NOT NULL,
			type        TEXT NOT NULL,
			success     INTEGER NOT NULL,
			results     TEXT NOT NULL DEFAULT '{}',
			errors      TEXT NOT NULL DEFAULT '[]',
			started_at  INTEGER NOT NULL, -- unix nanoseconds
			duration_ms INTEGER NOT NULL
		)
	`)
	return err
}

// Close closes the underlying database connection.
func (s *SQLiteRunStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteRunStore) SaveRun(ctx context.Context, result domain.WorkflowResult) error {
	resultsJSON, err := json.Marshal(result.Results)
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}
	errorsJSON, err := json.Marshal(result.Errors)
	if err != nil {
		return fmt.Errorf("marshal errors: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO workflow_runs
			(id, workflow, type, success, results, errors, started_at, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		result.RunID,
		result.Workflow,
		string(result.Type),
		boolToInt(result.Success),
		string(resultsJSON),
		string(errorsJSON),
		result.StartedAt.UnixNano(),
		result.Duration.Milliseconds(),
	)
	return domain.WrapOp("save run", err)
}

func (s *SQLiteRunStore) GetRun(ctx context.Context, runID string) (*domain.WorkflowResult, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, workflow, type, success, results, errors, started_at, duration_ms
		FROM workflow_runs WHERE id = ?`, runID)

	result, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NewSubSystemError("workflow", "SQLiteRunStore.GetRun", domain.ErrNotFound, runID)
	}
	return result, err
}

func (s *SQLiteRunStore) ListRuns(ctx context.Context, limit int) ([]domain.WorkflowResult, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, workflow, type, success, results, errors, started_at, duration_ms
		FROM workflow_runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, domain.WrapOp("list runs", err)
	}
	defer rows.Close()

	var results []domain.WorkflowResult
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, *r)
	}
	return results, rows.Err()
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*domain.WorkflowResult, error) {
	var (
		r           domain.WorkflowResult
		typ         string
		success     int
		resultsJSON string
		errorsJSON  string
		startedAt   int64
		durationMS  int64
	)
	if err := row.Scan(&r.RunID, &r.Workflow, &typ, &success, &resultsJSON, &errorsJSON, &startedAt, &durationMS); err != nil {
		return nil, err
	}

	r.Type = domain.WorkflowType(typ)
	r.Success = success != 0
	r.Duration = time.Duration(durationMS) * time.Millisecond
	if err := json.Unmarshal([]byte(resultsJSON), &r.Results); err != nil {
		return nil, fmt.Errorf("unmarshal results: %w", err)
	}
	if err := json.Unmarshal([]byte(errorsJSON), &r.Errors); err != nil {
		return nil, fmt.Errorf("unmarshal errors: %w", err)
	}
	r.StartedAt = time.Unix(0, startedAt)
	return &r, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
