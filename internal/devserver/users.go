// ABOUTME: In-memory account table for the development service
// ABOUTME: Passwords are bcrypt hashed; accounts start unverified in verify signup mode

package devserver

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotVerified        = errors.New("email not verified")
	ErrUserNotFound       = errors.New("user not found")
)

// User is the public form of an account, serialized as the service's user object.
type User struct {
	ID       string `json:"id"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
}

type account struct {
	user         User
	passwordHash []byte
	verified     bool
}

// userTable stores accounts keyed by lower-cased email.
type userTable struct {
	mu      sync.RWMutex
	byEmail map[string]*account
	byID    map[string]*account
}

func newUserTable() *userTable {
	return &userTable{
		byEmail: make(map[string]*account),
		byID:    make(map[string]*account),
	}
}

func emailKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// register creates an account. verified marks it usable for login immediately.
func (t *userTable) register(fullName, email, password string, verified bool) (User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	key := emailKey(email)
	if _, exists := t.byEmail[key]; exists {
		return User{}, ErrEmailTaken
	}
	acct := &account{
		user:         User{ID: uuid.New().String(), FullName: strings.TrimSpace(fullName), Email: key},
		passwordHash: hash,
		verified:     verified,
	}
	t.byEmail[key] = acct
	t.byID[acct.user.ID] = acct
	return acct.user, nil
}

// authenticate checks a password and returns the verified account's user.
func (t *userTable) authenticate(email, password string) (User, error) {
	t.mu.RLock()
	acct, ok := t.byEmail[emailKey(email)]
	t.mu.RUnlock()
	if !ok {
		return User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(acct.passwordHash, []byte(password)); err != nil {
		return User{}, ErrInvalidCredentials
	}

	t.mu.RLock()
	defer t.mu.RUnlock()
	if !acct.verified {
		return User{}, ErrNotVerified
	}
	return acct.user, nil
}

// markVerified activates the account for email.
func (t *userTable) markVerified(email string) (User, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	acct, ok := t.byEmail[emailKey(email)]
	if !ok {
		return User{}, ErrUserNotFound
	}
	acct.verified = true
	return acct.user, nil
}

func (t *userTable) remove(email string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	acct, ok := t.byEmail[emailKey(email)]
	if !ok {
		return false
	}
	delete(t.byEmail, emailKey(email))
	delete(t.byID, acct.user.ID)
	return true
}

// UserExists implements auth.UserLookup.
func (t *userTable) UserExists(_ context.Context, id string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	acct, ok := t.byID[id]
	return ok && acct.verified
}
