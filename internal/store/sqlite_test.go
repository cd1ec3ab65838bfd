// ABOUTME: Tests for SQLite session store implementation
// ABOUTME: Covers schema creation, save/load round trip, atomic clear, and partial records

package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "session.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestNewSQLiteStore_CreatesDirectory(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "subdir", "nested", "session.db")

	s, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("database file was not created in nested directory")
	}
}

func TestLoadSession_Empty(t *testing.T) {
	s := newTestStore(t)

	_, err := s.LoadSession(context.Background())
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("LoadSession() error = %v, want ErrNotFound", err)
	}
}

func TestSaveAndLoadSession(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec := &SessionRecord{
		Token: "tok-abc",
		User:  []byte(`{"id":"u1","full_name":"Ada","email":"ada@example.com"}`),
	}
	if err := s.SaveSession(ctx, rec); err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}

	got, err := s.LoadSession(ctx)
	if err != nil {
		t.Fatalf("LoadSession failed: %v", err)
	}
	if got.Token != rec.Token {
		t.Errorf("Token = %q, want %q", got.Token, rec.Token)
	}
	if string(got.User) != string(rec.User) {
		t.Errorf("User = %s, want %s", got.User, rec.User)
	}
}

func TestSaveSession_Overwrites(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_ = s.SaveSession(ctx, &SessionRecord{Token: "old", User: []byte(`{"id":"1"}`)})
	if err := s.SaveSession(ctx, &SessionRecord{Token: "new", User: []byte(`{"id":"2"}`)}); err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}

	got, err := s.LoadSession(ctx)
	if err != nil {
		t.Fatalf("LoadSession failed: %v", err)
	}
	if got.Token != "new" || string(got.User) != `{"id":"2"}` {
		t.Errorf("got %q / %s, want overwritten record", got.Token, got.User)
	}
}

func TestSaveSession_RejectsIncompleteRecord(t *testing.T) {
	s := newTestStore(t)

	if err := s.SaveSession(context.Background(), &SessionRecord{Token: "only-token"}); err == nil {
		t.Error("SaveSession() expected error for record without user")
	}
}

func TestClearSession(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_ = s.SaveSession(ctx, &SessionRecord{Token: "tok", User: []byte(`{"id":"1"}`)})
	if err := s.ClearSession(ctx); err != nil {
		t.Fatalf("ClearSession failed: %v", err)
	}

	if _, err := s.LoadSession(ctx); !errors.Is(err, ErrNotFound) {
		t.Errorf("LoadSession() after clear error = %v, want ErrNotFound", err)
	}

	// Clearing twice is fine
	if err := s.ClearSession(ctx); err != nil {
		t.Errorf("second ClearSession failed: %v", err)
	}
}

func TestLoadSession_PartialRecordIsAbsent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.db.Exec(`INSERT INTO session_state (key, value, updated_at) VALUES ('auth_token', 'tok', '2026-01-01T00:00:00Z')`)
	if err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	if _, err := s.LoadSession(ctx); !errors.Is(err, ErrNotFound) {
		t.Errorf("LoadSession() error = %v, want ErrNotFound for token without user", err)
	}
}

func TestSessionSurvivesReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "session.db")
	ctx := context.Background()

	first, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	if err := first.SaveSession(ctx, &SessionRecord{Token: "persisted", User: []byte(`{"id":"u"}`)}); err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}
	first.Close()

	second, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer second.Close()

	got, err := second.LoadSession(ctx)
	if err != nil {
		t.Fatalf("LoadSession after reopen failed: %v", err)
	}
	if got.Token != "persisted" {
		t.Errorf("Token = %q, want persisted", got.Token)
	}
}
