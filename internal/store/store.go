package store

import (
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// user_version history: 1 adds generations.error_details.
const currentSchemaVersion = 1

// ErrNotFound is returned when a requested session does not exist.
var ErrNotFound = errors.New("not found")

// Store is the edit journal: one row per session and one per generation
// attempt, append-only.
type Store struct {
	db *sql.DB
}

// journalPragmas are applied to every connection Open hands out. WAL lets
// history and replay read a journal while a play session appends to it.
var journalPragmas = []string{
	"PRAGMA journal_mode = WAL",
	"PRAGMA synchronous = NORMAL",
	"PRAGMA busy_timeout = 5000",
	"PRAGMA foreign_keys = ON",
}

// Open opens the journal at path, creating it if needed, and brings its
// schema up to date. ":memory:" gives a private in-memory journal.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	// One connection: SQLite serializes writers anyway, and an in-memory
	// database is per connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := initJournal(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func initJournal(db *sql.DB) error {
	if err := db.Ping(); err != nil {
		return fmt.Errorf("connect journal: %w", err)
	}
	for _, pragma := range journalPragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("apply %q: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	if err := runMigrations(db); err != nil {
		return fmt.Errorf("migrate journal: %w", err)
	}
	return nil
}

// Close closes the journal. It is safe on a zero Store.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB exposes the underlying handle for ad hoc inspection.
func (s *Store) DB() *sql.DB {
	return s.db
}

// runMigrations applies incremental schema migrations based on user_version.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 1 {
		if err := migrateToV1(db); err != nil {
			return err
		}
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}

	return nil
}

// migrateToV1 adds generations.error_details to journals created before
// the column existed. New journals get it from schema.sql.
func migrateToV1(db *sql.DB) error {
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM pragma_table_info('generations') WHERE name = 'error_details'`).Scan(&n)
	if err != nil {
		return fmt.Errorf("migrate to v1: %w", err)
	}
	if n > 0 {
		return nil
	}
	if _, err := db.Exec(`ALTER TABLE generations ADD COLUMN error_details TEXT NOT NULL DEFAULT '{}'`); err != nil {
		return fmt.Errorf("migrate to v1: %w", err)
	}
	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.db.QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
