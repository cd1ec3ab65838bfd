// ABOUTME: Session store owning the authentication state and bearer credential
// ABOUTME: Persists credential and user together and drops both when the service rejects the credential

package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/2389/coven-workspace/internal/config"
	"github.com/2389/coven-workspace/internal/remote"
	"github.com/2389/coven-workspace/internal/store"
	"github.com/2389/coven-workspace/internal/validate"
)

// State is the authentication state of the store.
type State int

const (
	Anonymous State = iota
	Authenticating
	AwaitingVerification
	Authenticated
)

func (s State) String() string {
	switch s {
	case Anonymous:
		return "anonymous"
	case Authenticating:
		return "authenticating"
	case AwaitingVerification:
		return "awaiting_verification"
	case Authenticated:
		return "authenticated"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// User is the signed-in account as returned by the service.
type User struct {
	ID       string `json:"id"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
}

// Snapshot is an immutable view of the store.
type Snapshot struct {
	State        State
	User         *User // nil unless Authenticated
	PendingEmail string
	Loading      bool
}

// Cause names what triggered a state change.
type Cause string

const (
	CauseRestore     Cause = "restore"
	CauseLogin       Cause = "login"
	CauseSignup      Cause = "signup"
	CauseVerify      Cause = "verify"
	CauseLogout      Cause = "logout"
	CauseInvalidated Cause = "invalidated"
)

// Change is delivered to subscribers after every state transition.
type Change struct {
	Cause    Cause
	Snapshot Snapshot
}

// Options configures a Store.
type Options struct {
	Storage    store.SessionStore
	Client     *remote.Client
	SignupMode string // config.SignupModeVerify (default) or config.SignupModeImmediate
	OTPLength  int
	Logger     *slog.Logger
}

// Store owns the credential, the user and the pending verification.
// It implements remote.Session and binds itself to the client it is given.
type Store struct {
	storage    store.SessionStore
	client     *remote.Client
	signupMode string
	otpLength  int
	logger     *slog.Logger

	mu           sync.Mutex
	state        State
	credential   string
	user         *User
	pendingEmail string
	loading      bool
	// generation advances on logout and invalidation so in-flight
	// operations started before them cannot commit.
	generation uint64
	listeners  []func(Change)
}

var _ remote.Session = (*Store)(nil)

// New creates a Store in the Anonymous state and binds it to opts.Client.
func New(opts Options) *Store {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	mode := opts.SignupMode
	if mode == "" {
		mode = config.SignupModeVerify
	}
	otpLength := opts.OTPLength
	if otpLength <= 0 {
		otpLength = config.DefaultOTPLength
	}

	s := &Store{
		storage:    opts.Storage,
		client:     opts.Client,
		signupMode: mode,
		otpLength:  otpLength,
		logger:     logger.With("component", "session"),
	}
	if opts.Client != nil {
		opts.Client.Bind(s)
	}
	return s
}

// Subscribe registers fn to be called after every transition.
// Callbacks run on the goroutine that caused the change, without locks held.
func (s *Store) Subscribe(fn func(Change)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Credential returns the current bearer token, or "" when none is held.
func (s *Store) Credential() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.credential
}

// Loading reports whether a login, signup or verification is in flight.
func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Snapshot returns the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	snap := Snapshot{
		State:        s.state,
		PendingEmail: s.pendingEmail,
		Loading:      s.loading,
	}
	if s.user != nil {
		u := *s.user
		snap.User = &u
	}
	return snap
}

func (s *Store) notify(cause Cause) {
	s.mu.Lock()
	change := Change{Cause: cause, Snapshot: s.snapshotLocked()}
	listeners := append([]func(Change){}, s.listeners...)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(change)
	}
}

// Restore loads a persisted session. When both credential and user are stored
// the store enters Authenticated without contacting the service.
func (s *Store) Restore(ctx context.Context) error {
	s.mu.Lock()
	rec, err := s.storage.LoadSession(ctx)
	if errors.Is(err, store.ErrNotFound) {
		s.mu.Unlock()
		return nil
	}
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("loading session: %w", err)
	}

	var user User
	if err := json.Unmarshal(rec.User, &user); err != nil || rec.Token == "" {
		s.logger.Warn("discarding unreadable stored session", "error", err)
		clearErr := s.storage.ClearSession(ctx)
		s.mu.Unlock()
		if clearErr != nil {
			return fmt.Errorf("clearing unreadable session: %w", clearErr)
		}
		return nil
	}

	s.credential = rec.Token
	s.user = &user
	s.pendingEmail = ""
	s.state = Authenticated
	s.mu.Unlock()

	s.logger.Info("session restored", "user_id", user.ID)
	s.notify(CauseRestore)
	return nil
}

// authResponse is the success body of login and verify-otp, and optionally of signup.
type authResponse struct {
	AccessToken string `json:"access_token"`
	User        *User  `json:"user"`
}

func (r *authResponse) complete() bool {
	return r.AccessToken != "" && r.User != nil
}

// begin enters Authenticating and returns the generation the operation belongs to.
func (s *Store) begin(clearPending bool) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loading {
		return 0, ErrInProgress
	}
	if s.state == Authenticated {
		return 0, ErrAuthenticated
	}
	if clearPending {
		s.pendingEmail = ""
	}
	s.loading = true
	s.state = Authenticating
	return s.generation, nil
}

// fail leaves Authenticating for next unless the operation was superseded.
func (s *Store) fail(gen uint64, next State, cause Cause) {
	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return
	}
	s.loading = false
	s.state = next
	if next == Anonymous {
		s.pendingEmail = ""
	}
	s.mu.Unlock()
	s.notify(cause)
}

// commit persists and adopts a successful auth response. Storage is written
// under the lock so memory and durable state never disagree.
func (s *Store) commit(ctx context.Context, gen uint64, resp *authResponse, cause Cause) error {
	data, err := json.Marshal(resp.User)
	if err != nil {
		return fmt.Errorf("encoding user: %w", err)
	}

	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return ErrSuperseded
	}
	if err := s.storage.SaveSession(ctx, &store.SessionRecord{Token: resp.AccessToken, User: data}); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("saving session: %w", err)
	}
	user := *resp.User
	s.credential = resp.AccessToken
	s.user = &user
	s.pendingEmail = ""
	s.loading = false
	s.state = Authenticated
	s.mu.Unlock()

	s.logger.Info("signed in", "user_id", user.ID, "via", string(cause))
	s.notify(cause)
	return nil
}

// Login authenticates with email and password.
func (s *Store) Login(ctx context.Context, email, password string) error {
	email = strings.TrimSpace(email)
	if err := validate.Email("email", email); err != nil {
		return err
	}
	if err := validate.Required("password", password); err != nil {
		return err
	}

	gen, err := s.begin(true)
	if err != nil {
		return err
	}
	s.notify(CauseLogin)

	if err := s.login(ctx, gen, email, password, CauseLogin); err != nil {
		s.fail(gen, Anonymous, CauseLogin)
		return err
	}
	return nil
}

func (s *Store) login(ctx context.Context, gen uint64, email, password string, cause Cause) error {
	var resp authResponse
	err := s.client.SendJSON(ctx, &remote.Request{
		Path: "/api/auth/login/",
		JSON: map[string]string{"email": email, "password": password},
	}, &resp)
	if err != nil {
		s.logger.Warn("login failed", "error", err, "rejected", remote.IsUnauthorized(err))
		return &Error{Op: "login", Reason: remote.Reason(err, ReasonLogin), Err: err}
	}
	if !resp.complete() {
		return &Error{Op: "login", Reason: ReasonLogin, Err: errors.New("response missing access_token or user")}
	}
	if err := s.commit(ctx, gen, &resp, cause); err != nil {
		return &Error{Op: "login", Reason: ReasonLogin, Err: err}
	}
	return nil
}

// signupResponse covers both signup shapes: a direct token or a pending verification.
type signupResponse struct {
	authResponse
	Message string `json:"message"`
	Email   string `json:"email"`
}

// Signup registers an account. In verify mode the store then awaits a
// one-time code for the email; in immediate mode it signs in directly.
func (s *Store) Signup(ctx context.Context, fullName, email, password string) error {
	fullName = strings.TrimSpace(fullName)
	email = strings.TrimSpace(email)
	if err := validate.Required("full_name", fullName); err != nil {
		return err
	}
	if err := validate.Email("email", email); err != nil {
		return err
	}
	if err := validate.Required("password", password); err != nil {
		return err
	}

	gen, err := s.begin(true)
	if err != nil {
		return err
	}
	s.notify(CauseSignup)

	var resp signupResponse
	err = s.client.SendJSON(ctx, &remote.Request{
		Path: "/api/auth/signup/",
		JSON: map[string]string{"full_name": fullName, "email": email, "password": password},
	}, &resp)
	if err != nil {
		s.logger.Warn("signup failed", "error", err)
		s.fail(gen, Anonymous, CauseSignup)
		return &Error{Op: "signup", Reason: remote.Reason(err, ReasonSignup), Err: err}
	}

	if s.signupMode == config.SignupModeImmediate {
		if resp.complete() {
			if err := s.commit(ctx, gen, &resp.authResponse, CauseSignup); err != nil {
				s.fail(gen, Anonymous, CauseSignup)
				return &Error{Op: "signup", Reason: ReasonSignup, Err: err}
			}
			return nil
		}
		if err := s.login(ctx, gen, email, password, CauseSignup); err != nil {
			s.fail(gen, Anonymous, CauseSignup)
			return err
		}
		return nil
	}

	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return &Error{Op: "signup", Reason: ReasonSignup, Err: ErrSuperseded}
	}
	s.pendingEmail = email
	s.loading = false
	s.state = AwaitingVerification
	s.mu.Unlock()

	s.logger.Info("signup awaiting verification")
	s.notify(CauseSignup)
	return nil
}

// Verify submits the one-time code for the pending signup.
func (s *Store) Verify(ctx context.Context, code string) error {
	code = strings.TrimSpace(code)

	s.mu.Lock()
	if s.loading {
		s.mu.Unlock()
		return ErrInProgress
	}
	if s.state != AwaitingVerification || s.pendingEmail == "" {
		s.mu.Unlock()
		return ErrNoPendingVerification
	}
	if err := validate.Code("otp", code, s.otpLength); err != nil {
		s.mu.Unlock()
		return err
	}
	email := s.pendingEmail
	gen := s.generation
	s.loading = true
	s.state = Authenticating
	s.mu.Unlock()
	s.notify(CauseVerify)

	var resp authResponse
	err := s.client.SendJSON(ctx, &remote.Request{
		Path: "/api/auth/verify-otp/",
		JSON: map[string]string{"email": email, "otp": code},
	}, &resp)
	if err != nil {
		s.logger.Warn("verification failed", "error", err)
		s.fail(gen, AwaitingVerification, CauseVerify)
		return &Error{Op: "verify", Reason: remote.Reason(err, ReasonVerify), Err: err}
	}
	if !resp.complete() {
		s.fail(gen, AwaitingVerification, CauseVerify)
		return &Error{Op: "verify", Reason: ReasonVerify, Err: errors.New("response missing access_token or user")}
	}
	if err := s.commit(ctx, gen, &resp, CauseVerify); err != nil {
		s.fail(gen, AwaitingVerification, CauseVerify)
		return &Error{Op: "verify", Reason: ReasonVerify, Err: err}
	}
	return nil
}

// Logout drops the credential, user and pending verification from memory and storage.
func (s *Store) Logout(ctx context.Context) error {
	s.mu.Lock()
	err := s.resetLocked(ctx)
	s.mu.Unlock()

	s.logger.Info("signed out")
	s.notify(CauseLogout)
	return err
}

// Invalidate is called by the remote client when the service rejects
// credential. State is only cleared when credential is still the one held,
// so a late rejection of an older credential cannot end a newer session.
func (s *Store) Invalidate(credential string) {
	s.mu.Lock()
	if credential == "" || credential != s.credential {
		s.mu.Unlock()
		s.logger.Debug("ignoring rejection of a credential no longer held")
		return
	}
	err := s.resetLocked(context.Background())
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("clearing invalidated session", "error", err)
	}
	s.logger.Warn("credential rejected by service, signed out")
	s.notify(CauseInvalidated)
}

func (s *Store) resetLocked(ctx context.Context) error {
	s.generation++
	s.credential = ""
	s.user = nil
	s.pendingEmail = ""
	s.loading = false
	s.state = Anonymous

	if err := s.storage.ClearSession(ctx); err != nil {
		return fmt.Errorf("clearing session: %w", err)
	}
	return nil
}
