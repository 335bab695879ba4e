// Package planstore is a content-addressed cache for crushed plans:
// crush(finalize(finish(w))) is a pure function of the coalesced op
// graph, so its result can be memoized by the graph's hash in a local
// SQLite file and reused across runs that submit the same plan.
package planstore

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Store is a single-writer SQLite-backed cache of crushed task trees.
type Store struct {
	db *sql.DB
}

// Open creates or opens the cache database at path, applying pragmas and
// the schema. Idempotent — safe to call repeatedly against the same file.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("planstore: open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("planstore: connect: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("planstore: apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("planstore: exec %q: %w", pragma, err)
		}
	}
	return nil
}

// Ping verifies the underlying connection is alive. No CLI command calls
// it; Open pings the database once itself.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
