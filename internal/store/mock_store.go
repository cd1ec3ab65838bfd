// ABOUTME: Mock SessionStore implementation for testing
// ABOUTME: Allows tests to run without SQLite and to inject storage failures

package store

import (
	"context"
	"errors"
	"sync"
)

// MockStore is an in-memory SessionStore implementation for testing.
type MockStore struct {
	mu      sync.RWMutex
	entries map[string][]byte

	// SaveErr, when set, is returned by SaveSession without storing anything.
	SaveErr error
	// Loads counts LoadSession calls.
	Loads int
}

// NewMockStore creates a new MockStore.
func NewMockStore() *MockStore {
	return &MockStore{
		entries: make(map[string][]byte),
	}
}

// LoadSession returns a copy of the stored record.
func (m *MockStore) LoadSession(ctx context.Context) (*SessionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Loads++

	token, okToken := m.entries[KeyAuthToken]
	user, okUser := m.entries[KeyUser]
	if !okToken || !okUser {
		return nil, ErrNotFound
	}

	return &SessionRecord{
		Token: string(token),
		User:  append([]byte(nil), user...),
	}, nil
}

// SaveSession stores both entries.
func (m *MockStore) SaveSession(ctx context.Context, rec *SessionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.SaveErr != nil {
		return m.SaveErr
	}
	if rec == nil || rec.Token == "" || len(rec.User) == 0 {
		return errors.New("session record requires token and user")
	}
	m.entries[KeyAuthToken] = []byte(rec.Token)
	m.entries[KeyUser] = append([]byte(nil), rec.User...)
	return nil
}

// ClearSession removes both entries.
func (m *MockStore) ClearSession(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.entries, KeyAuthToken)
	delete(m.entries, KeyUser)
	return nil
}

// Has reports whether the given key is stored.
func (m *MockStore) Has(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.entries[key]
	return ok
}

// Put stores a single raw entry, for simulating partially written state.
func (m *MockStore) Put(key string, value []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = value
}
