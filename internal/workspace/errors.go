// ABOUTME: Error values returned by the workspace and its agent sessions
// ABOUTME: None of these affect anything beyond the session or call that produced them

package workspace

import "errors"

var (
	// ErrUnavailableAgent is returned when opening an unknown or not-yet-available agent.
	ErrUnavailableAgent = errors.New("agent unavailable")
	// ErrBusy is returned when a session already has a request in flight.
	ErrBusy = errors.New("request already in flight")
	// ErrSessionClosed is returned for submits to a closed session and for
	// responses that arrive after their session was closed.
	ErrSessionClosed = errors.New("session closed")
)
