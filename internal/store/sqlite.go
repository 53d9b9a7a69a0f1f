package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	_ "embed"
	"errors"
	"fmt"
	"sync"

	"github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 1 - reference_cache table
const currentSchemaVersion = 1

// SQLite is a file-backed Adapter.
// Uses WAL mode so readers do not block the single writer.
type SQLite struct {
	path string

	mu       sync.RWMutex
	db       *sql.DB
	external bool
}

// NewSQLite returns an unconnected adapter for the database at path.
// The file is created on Connect if it does not exist.
func NewSQLite(path string) *SQLite {
	return &SQLite{path: path}
}

// NewSQLiteDB wraps an already opened handle. Connect only pings it; the
// caller owns pragmas and schema. Close does not close the handle.
func NewSQLiteDB(db *sql.DB) *SQLite {
	return &SQLite{db: db, external: true}
}

// Connect opens the database, applies pragmas and the schema.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode (balance durability/performance)
//   - 5-second busy timeout for lock contention
//
// Calling Connect on a connected adapter is a no-op.
func (s *SQLite) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.external {
		if err := s.db.PingContext(ctx); err != nil {
			return unreachable("sqlite connect", err)
		}
		return nil
	}
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite3", s.path)
	if err != nil {
		return unreachable("sqlite connect", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return unreachable("sqlite connect", err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(ctx, db); err != nil {
		db.Close()
		return fmt.Errorf("sqlite connect: %w", err)
	}
	if err := applySchema(ctx, db); err != nil {
		db.Close()
		return fmt.Errorf("sqlite connect: %w", err)
	}

	s.db = db
	return nil
}

// Get reads the value stored under key.
func (s *SQLite) Get(ctx context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, false, ErrNotConnected
	}

	var value []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM reference_cache WHERE key = ?`, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, callFailed(ctx, "sqlite get", err, sqliteConnLost)
	}
	return value, true, nil
}

// Set upserts value under key. Last writer wins.
func (s *SQLite) Set(ctx context.Context, key, value string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return ErrNotConnected
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO reference_cache (key, value)
		VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, []byte(value))
	if err != nil {
		return callFailed(ctx, "sqlite set", err, sqliteConnLost)
	}
	return nil
}

// Close closes the database connection. Handles passed to NewSQLiteDB are
// left open.
func (s *SQLite) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.external || s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// sqliteConnLost reports whether err means the database itself is gone
// rather than one statement failing. SQLITE_BUSY and constraint errors are
// statement failures.
func sqliteConnLost(err error) bool {
	if errors.Is(err, sql.ErrConnDone) || errors.Is(err, driver.ErrBadConn) {
		return true
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code {
		case sqlite3.ErrCantOpen, sqlite3.ErrIoErr, sqlite3.ErrNotADB, sqlite3.ErrCorrupt:
			return true
		}
	}
	return false
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}

	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

// applySchema creates the table if needed and stamps user_version.
// A database written by a newer schema is refused rather than downgraded.
func applySchema(ctx context.Context, db *sql.DB) error {
	var version int
	if err := db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}
	if version > currentSchemaVersion {
		return fmt.Errorf("schema version %d is newer than supported version %d", version, currentSchemaVersion)
	}

	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	if _, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}
