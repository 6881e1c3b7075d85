package memory

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	_ "modernc.org/sqlite"

	"github.com/telos-labs/telos/pkg/core"
)

// SQLiteArchiver persists run traces in SQLite.
type SQLiteArchiver struct {
	db *sql.DB
}

// NewSQLiteArchiver creates a SQLite-backed trace archiver and ensures schema.
func NewSQLiteArchiver(db *sql.DB) (*SQLiteArchiver, error) {
	if db == nil {
		return nil, errors.New("db is nil")
	}
	if err := ensureTraceSchema(db); err != nil {
		return nil, err
	}
	return &SQLiteArchiver{db: db}, nil
}

// OpenSQLiteArchiver opens (or creates) the SQLite database at dsn.
func OpenSQLiteArchiver(dsn string) (*SQLiteArchiver, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	return NewSQLiteArchiver(db)
}

// Archive stores the trace for one run. Each step is one row; insertion
// order is preserved through the step index.
func (s *SQLiteArchiver) Archive(ctx context.Context, runID string, steps []core.Step) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, step := range steps {
		result, err := encodeStepResult(step.Result)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO run_trace_steps (
				run_id, step_index, tool_name, sub_goal, command, result_json, success, error_text, started_at, finished_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			runID,
			step.Index,
			step.ToolName,
			step.SubGoal,
			step.Command,
			string(result),
			step.Success,
			step.Error,
			step.StartedAt.UTC(),
			step.FinishedAt.UTC(),
		)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

// List returns the archived steps for a run in insertion order.
func (s *SQLiteArchiver) List(ctx context.Context, runID string) ([]core.Step, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT step_index, tool_name, sub_goal, command, result_json, success, error_text, started_at, finished_at
		FROM run_trace_steps
		WHERE run_id = ?
		ORDER BY step_index ASC, rowid ASC
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var steps []core.Step
	for rows.Next() {
		var (
			step       core.Step
			resultJSON string
			started    sql.NullTime
			finished   sql.NullTime
		)
		if err := rows.Scan(
			&step.Index,
			&step.ToolName,
			&step.SubGoal,
			&step.Command,
			&resultJSON,
			&step.Success,
			&step.Error,
			&started,
			&finished,
		); err != nil {
			return nil, err
		}
		if resultJSON != "" {
			var out any
			if err := json.Unmarshal([]byte(resultJSON), &out); err == nil {
				step.Result = out
			}
		}
		if started.Valid {
			step.StartedAt = started.Time
		}
		if finished.Valid {
			step.FinishedAt = finished.Time
		}
		steps = append(steps, step)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return steps, nil
}

// Close closes the underlying database.
func (s *SQLiteArchiver) Close() error {
	return s.db.Close()
}

func encodeStepResult(result any) ([]byte, error) {
	if result == nil {
		return nil, nil
	}
	return json.Marshal(result)
}

func ensureTraceSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS run_trace_steps (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			step_index INTEGER NOT NULL,
			tool_name TEXT NOT NULL,
			sub_goal TEXT,
			command TEXT,
			result_json TEXT,
			success BOOLEAN NOT NULL,
			error_text TEXT,
			started_at TIMESTAMP,
			finished_at TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_run_trace_run ON run_trace_steps(run_id);
		CREATE INDEX IF NOT EXISTS idx_run_trace_tool ON run_trace_steps(tool_name);
	`)
	return err
}

var _ Archiver = (*SQLiteArchiver)(nil)
