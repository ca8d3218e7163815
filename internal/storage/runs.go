package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Run statuses.
const (
	StatusRunning = "running" // process is (or was, if the host died) alive
	StatusExited  = "exited"  // process ended on its own
	StatusKilled  = "killed"  // host terminated the process group
)

// Run is one script execution record.
type Run struct {
	ID         string
	PID        int
	ScriptPath string
	StartedAt  time.Time
	EndedAt    *time.Time // nil while running
	ExitCode   *int       // nil while running; -1 for signal deaths
	Status     string
}

// RecordStart inserts a new running record and returns it with a generated id.
func (s *Store) RecordStart(pid int, scriptPath string) (*Run, error) {
	run := &Run{
		ID:         uuid.New().String(),
		PID:        pid,
		ScriptPath: scriptPath,
		StartedAt:  time.Now().UTC(),
		Status:     StatusRunning,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(
		`INSERT INTO runs (id, pid, script_path, started_at, status) VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.PID, run.ScriptPath, run.StartedAt.Format(time.RFC3339Nano), run.Status,
	)
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	return run, nil
}

// RecordExit finalizes a run with its exit code and status.
// Returns ErrRunNotFound if the id matches no record.
func (s *Store) RecordExit(id string, exitCode int, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.Exec(
		`UPDATE runs SET ended_at = ?, exit_code = ?, status = ? WHERE id = ?`,
		time.Now().UTC().Format(time.RFC3339Nano), exitCode, status, id,
	)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrRunNotFound
	}
	return nil
}

// GetRun returns one run by id, or ErrRunNotFound.
func (s *Store) GetRun(id string) (*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row := s.db.QueryRow(
		`SELECT id, pid, script_path, started_at, ended_at, exit_code, status FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query run: %w", err)
	}
	return run, nil
}

// ListRecent returns up to limit runs, newest first.
func (s *Store) ListRecent(limit int) ([]*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.Query(
		`SELECT id, pid, script_path, started_at, ended_at, exit_code, status
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// MarkInterrupted flips every still-running record to killed. Called at
// startup: a record left in running state means the previous host died
// before finalizing it, and orphan cleanup kills the process anyway.
func (s *Store) MarkInterrupted() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.Exec(
		`UPDATE runs SET ended_at = ?, exit_code = -1, status = ? WHERE status = ?`,
		time.Now().UTC().Format(time.RFC3339Nano), StatusKilled, StatusRunning,
	)
	if err != nil {
		return 0, fmt.Errorf("mark interrupted: %w", err)
	}
	return res.RowsAffected()
}

// scanner covers both sql.Row and sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var run Run
	var startedAt string
	var endedAt sql.NullString
	var exitCode sql.NullInt64
	if err := row.Scan(&run.ID, &run.PID, &run.ScriptPath, &startedAt, &endedAt, &exitCode, &run.Status); err != nil {
		return nil, err
	}

	t, err := time.Parse(time.RFC3339Nano, startedAt)
	if err != nil {
		return nil, fmt.Errorf("parse started_at: %w", err)
	}
	run.StartedAt = t

	if endedAt.Valid {
		t, err := time.Parse(time.RFC3339Nano, endedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parse ended_at: %w", err)
		}
		run.EndedAt = &t
	}
	if exitCode.Valid {
		code := int(exitCode.Int64)
		run.ExitCode = &code
	}
	return &run, nil
}
