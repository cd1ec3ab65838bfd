// ABOUTME: SQLite implementation of the SessionStore interface using modernc.org/sqlite
// ABOUTME: Keeps session entries in a key/value table with automatic schema creation

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements SessionStore using SQLite
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite store at the given path.
// The schema is automatically created if it doesn't exist.
// Parent directories are created if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// A single connection keeps :memory: databases coherent and serializes writers
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Debug("SQLite store initialized", "path", path)
	return s, nil
}

// createSchema creates the database tables if they don't exist
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS session_state (
			key        TEXT PRIMARY KEY,
			value      TEXT NOT NULL,
			updated_at TEXT NOT NULL,

			CHECK (key IN ('auth_token', 'user'))
		);
	`
	_, err := s.db.Exec(schema)
	return err
}

// LoadSession returns the stored session record.
// A half-written record (only one key present) is reported as ErrNotFound.
func (s *SQLiteStore) LoadSession(ctx context.Context) (*SessionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM session_state`)
	if err != nil {
		return nil, fmt.Errorf("querying session state: %w", err)
	}
	defer rows.Close()

	var rec SessionRecord
	var haveToken, haveUser bool
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scanning session state: %w", err)
		}
		switch key {
		case KeyAuthToken:
			rec.Token = value
			haveToken = value != ""
		case KeyUser:
			rec.User = []byte(value)
			haveUser = value != ""
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating session state: %w", err)
	}

	if !haveToken || !haveUser {
		return nil, ErrNotFound
	}
	return &rec, nil
}

// SaveSession writes the credential and user in one transaction.
func (s *SQLiteStore) SaveSession(ctx context.Context, rec *SessionRecord) error {
	if rec == nil || rec.Token == "" || len(rec.User) == 0 {
		return errors.New("session record requires token and user")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().UTC().Format(time.RFC3339)
	upsert := `
		INSERT INTO session_state (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`
	if _, err := tx.ExecContext(ctx, upsert, KeyAuthToken, rec.Token, now); err != nil {
		return fmt.Errorf("saving %s: %w", KeyAuthToken, err)
	}
	if _, err := tx.ExecContext(ctx, upsert, KeyUser, string(rec.User), now); err != nil {
		return fmt.Errorf("saving %s: %w", KeyUser, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing session: %w", err)
	}
	return nil
}

// ClearSession removes both entries.
func (s *SQLiteStore) ClearSession(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM session_state WHERE key IN (?, ?)`, KeyAuthToken, KeyUser); err != nil {
		return fmt.Errorf("clearing session: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
