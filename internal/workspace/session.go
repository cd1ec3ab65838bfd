// ABOUTME: Agent session contract and the generic single-shot session
// ABOUTME: A single-shot session holds one request in flight and replaces its result on success

package workspace

import (
	"context"
	"log/slog"
	"sync"

	"github.com/2389/coven-workspace/internal/agent"
	"github.com/2389/coven-workspace/internal/remote"
)

// Caller sends a request to the remote service and decodes its JSON response.
// *remote.Client satisfies it.
type Caller interface {
	SendJSON(ctx context.Context, req *remote.Request, out any) error
}

// Session is one mounted agent. The concrete variants are *VideoSummarizer,
// *DocumentQA and *ResumeMatcher.
type Session interface {
	AgentID() string
	// Kind must match the Kind of the agent's catalogue entry.
	Kind() agent.Kind
	// Busy reports whether a request is in flight.
	Busy() bool
	// close marks the session dead; later completions are discarded.
	close()
}

// SingleShot is a session that submits one input at a time and keeps the
// latest successful result.
type SingleShot[In, Out any] struct {
	agentID  string
	caller   Caller
	logger   *slog.Logger
	validate func(In) error
	call     func(ctx context.Context, c Caller, in In) (Out, error)

	mu     sync.Mutex
	busy   bool
	closed bool
	input  *In
	result *Out
}

func newSingleShot[In, Out any](
	agentID string,
	caller Caller,
	logger *slog.Logger,
	validate func(In) error,
	call func(ctx context.Context, c Caller, in In) (Out, error),
) *SingleShot[In, Out] {
	return &SingleShot[In, Out]{
		agentID:  agentID,
		caller:   caller,
		logger:   logger.With("agent_id", agentID),
		validate: validate,
		call:     call,
	}
}

// AgentID returns the catalogue id this session was opened for.
func (s *SingleShot[In, Out]) AgentID() string { return s.agentID }

// Kind is always agent.KindSingleShot.
func (s *SingleShot[In, Out]) Kind() agent.Kind { return agent.KindSingleShot }

// Busy reports whether a request is in flight.
func (s *SingleShot[In, Out]) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

// Input returns the last submitted input.
func (s *SingleShot[In, Out]) Input() (In, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.input == nil {
		var zero In
		return zero, false
	}
	return *s.input, true
}

// Result returns the latest successful result.
func (s *SingleShot[In, Out]) Result() (Out, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.result == nil {
		var zero Out
		return zero, false
	}
	return *s.result, true
}

// Submit validates in and issues one request. On success the result replaces
// the previous one; on failure the previous result is kept and the error is
// returned to the caller only.
func (s *SingleShot[In, Out]) Submit(ctx context.Context, in In) (Out, error) {
	var zero Out
	if err := s.validate(in); err != nil {
		return zero, err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return zero, ErrSessionClosed
	}
	if s.busy {
		s.mu.Unlock()
		return zero, ErrBusy
	}
	s.busy = true
	s.input = &in
	s.mu.Unlock()

	out, err := s.call(ctx, s.caller, in)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		s.logger.Debug("discarding response for closed session")
		return zero, ErrSessionClosed
	}
	s.busy = false
	if err != nil {
		s.logger.Warn("submit failed", "error", err)
		return zero, err
	}
	s.result = &out
	return out, nil
}

func (s *SingleShot[In, Out]) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.busy = false
}
