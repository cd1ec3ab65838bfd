// ABOUTME: Error values returned by the session store
// ABOUTME: Error carries the service's literal failure reason for login, signup and verification

package session

import "errors"

var (
	// ErrInProgress is returned when an authentication operation is already running.
	ErrInProgress = errors.New("authentication already in progress")
	// ErrAuthenticated is returned by Login and Signup while a user is signed in.
	ErrAuthenticated = errors.New("already signed in")
	// ErrNoPendingVerification is returned by Verify when no signup awaits a code.
	ErrNoPendingVerification = errors.New("no signup awaiting verification")
	// ErrSuperseded is wrapped when a logout or invalidation overtook an in-flight operation.
	ErrSuperseded = errors.New("superseded by a newer session change")
)

// Fallback reasons used when the service does not supply one.
const (
	ReasonLogin  = "Login failed"
	ReasonSignup = "Signup failed"
	ReasonVerify = "OTP verification failed"
)

// Error reports a failed login, signup or verification.
// Its message is the reason shown to the user.
type Error struct {
	Op     string // "login", "signup" or "verify"
	Reason string
	Err    error
}

func (e *Error) Error() string { return e.Reason }

func (e *Error) Unwrap() error { return e.Err }
