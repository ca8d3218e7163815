// Package storage persists script run history in SQLite.
package storage

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	// SQLite driver - imported for side effects (registers the driver).
	// Using modernc.org/sqlite which is a pure-Go implementation that
	// doesn't require CGO, making cross-compilation and testing easier.
	"database/sql"

	_ "modernc.org/sqlite"
)

// ErrRunNotFound is returned when an operation targets a non-existent run.
var ErrRunNotFound = errors.New("run not found")

// Store persists run records in SQLite. It creates the database and tables
// on first use and supports concurrent access through internal locking.
type Store struct {
	db *sql.DB      // Database connection handle.
	mu sync.RWMutex // Guards all database operations for thread safety.
}

// Open opens or creates a SQLite database at the given path, creating
// parent directories and initializing the schema as needed.
// Use ":memory:" for an in-memory database (useful for testing).
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0700); err != nil {
				return nil, fmt.Errorf("create database directory: %w", err)
			}
		}
		log.Printf("storage: opening database at %s", path)
	}

	// Open database with foreign keys enabled for referential integrity.
	// The modernc.org/sqlite driver uses _pragma=foreign_keys(1) syntax.
	// We also set a busy_timeout of 5 seconds so overlapping writes from
	// concurrent script runs queue instead of failing.
	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Verify the connection is working.
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &Store{db: db}

	// Create tables if they don't exist.
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return store, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
