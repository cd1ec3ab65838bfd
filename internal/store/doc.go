// Package store provides durable storage for the workspace session.
//
// # Layout
//
// Exactly two keyed entries are persisted:
//
//   - auth_token: the bearer credential
//   - user: the JSON-serialized user record
//
// Both are written together on successful authentication and removed together
// on logout or credential invalidation. A record with only one entry present
// is treated as absent.
//
// # SQLite Configuration
//
// SQLiteStore keeps the entries in a session_state table:
//
//	PRAGMA journal_mode=WAL;
//
// Database file location: ~/.local/share/coven-workspace/session.db, or
// storage.path from the config. Tests use t.TempDir() files or ":memory:".
//
// # Testing
//
// Use NewMockStore() for unit tests:
//
//	st := store.NewMockStore()
//	// st implements SessionStore
package store
