package storage

import "fmt"

// schema holds the run history tables.
//
// Timestamps are stored as RFC3339 text: sortable, human-readable in the
// sqlite3 shell, and unambiguous across timezones.
const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	pid         INTEGER NOT NULL,
	script_path TEXT NOT NULL,
	started_at  TEXT NOT NULL,
	ended_at    TEXT,
	exit_code   INTEGER,
	status      TEXT NOT NULL CHECK (status IN ('running', 'exited', 'killed'))
);

CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at DESC);
CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
`

// initSchema creates the tables if they don't exist.
func (s *Store) initSchema() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("exec schema: %w", err)
	}
	return nil
}
