// ABOUTME: Store interface and data types for durable session state
// ABOUTME: Holds the credential and serialized user as two keyed entries written and removed together

package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no complete session record is stored
var ErrNotFound = errors.New("not found")

// Keys of the two persisted entries.
const (
	KeyAuthToken = "auth_token"
	KeyUser      = "user"
)

// SessionRecord is the persisted form of an authenticated session.
// Token is the bearer credential, User the JSON-serialized user record.
type SessionRecord struct {
	Token string
	User  []byte
}

// SessionStore persists the session across process restarts.
type SessionStore interface {
	// LoadSession returns the stored record, or ErrNotFound unless both entries are present.
	LoadSession(ctx context.Context) (*SessionRecord, error)
	// SaveSession writes both entries atomically.
	SaveSession(ctx context.Context, rec *SessionRecord) error
	// ClearSession removes both entries atomically. Clearing an empty store is not an error.
	ClearSession(ctx context.Context) error
}
