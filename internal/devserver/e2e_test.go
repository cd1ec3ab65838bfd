// ABOUTME: End-to-end test driving the session store and workspace against the dev service
// ABOUTME: Covers signup with a one-time code, all three agents, restore, and sign-out on a revoked token

package devserver_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/coven-workspace/internal/agent"
	"github.com/2389/coven-workspace/internal/config"
	"github.com/2389/coven-workspace/internal/devserver"
	"github.com/2389/coven-workspace/internal/remote"
	"github.com/2389/coven-workspace/internal/session"
	"github.com/2389/coven-workspace/internal/store"
	"github.com/2389/coven-workspace/internal/testutil"
	"github.com/2389/coven-workspace/internal/workspace"
)

type client struct {
	storage  *store.SQLiteStore
	remote   *remote.Client
	session  *session.Store
	ws       *workspace.Controller
	mu       sync.Mutex
	outcomes []session.Cause
}

func newClient(t *testing.T, baseURL, dbPath string) *client {
	t.Helper()
	storage, err := store.NewSQLiteStore(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = storage.Close() })

	c := &client{storage: storage}
	c.remote = remote.New(remote.Options{BaseURL: baseURL, Timeout: 10 * time.Second})
	c.session = session.New(session.Options{Storage: storage, Client: c.remote, OTPLength: 4})
	c.ws = workspace.NewController(workspace.Options{Registry: agent.Default(), Caller: c.remote})
	c.session.Subscribe(func(ch session.Change) {
		c.mu.Lock()
		c.outcomes = append(c.outcomes, ch.Cause)
		c.mu.Unlock()
		if ch.Cause == session.CauseInvalidated {
			c.ws.CloseAll()
		}
	})
	return c
}

func (c *client) sawInvalidation() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, cause := range c.outcomes {
		if cause == session.CauseInvalidated {
			return true
		}
	}
	return false
}

func TestEndToEnd(t *testing.T) {
	var mu sync.Mutex
	codes := make(map[string]string)
	srv, err := devserver.New(devserver.Options{
		Config: config.DevServerConfig{
			JWTSecret:  "end-to-end-secret-at-least-32-bytes!!",
			SignupMode: config.SignupModeVerify,
		},
		OTPLength: 4,
		OnCode: func(email, code string) {
			mu.Lock()
			codes[email] = code
			mu.Unlock()
		},
	})
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		srv.Close()
	})

	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "session.db")
	c := newClient(t, ts.URL, dbPath)

	// signup awaits a code, then verification signs in
	require.NoError(t, c.session.Signup(ctx, "Ada Lovelace", "ada@example.com", "engine"))
	assert.Equal(t, session.AwaitingVerification, c.session.Snapshot().State)

	mu.Lock()
	code := codes["ada@example.com"]
	mu.Unlock()
	require.NoError(t, c.session.Verify(ctx, code))

	snap := c.session.Snapshot()
	require.Equal(t, session.Authenticated, snap.State)
	assert.Equal(t, "Ada Lovelace", snap.User.FullName)

	// video summarizer
	s, err := c.ws.Open(agent.YouTubeSummarizer)
	require.NoError(t, err)
	video := s.(*workspace.VideoSummarizer)
	summary, err := video.Submit(ctx, workspace.VideoInput{URL: "https://youtu.be/abc123"})
	require.NoError(t, err)
	assert.Contains(t, summary.Title, "abc123")
	assert.NotEmpty(t, summary.Summary.KeyPoints)
	assert.NotEmpty(t, summary.Views())

	// document Q&A
	s, err = c.ws.Open(agent.PDFQA)
	require.NoError(t, err)
	qa := s.(*workspace.DocumentQA)
	_, err = qa.SetDocument(testutil.WriteFile(t, "paper.pdf", testutil.MinimalPDF()))
	require.NoError(t, err)
	answer, err := qa.Submit(ctx, "What is this about?")
	require.NoError(t, err)
	assert.Contains(t, answer.Text, "paper.pdf")
	require.Len(t, qa.Log(), 2)

	// resume matcher
	s, err = c.ws.Open(agent.ResumeMatcher)
	require.NoError(t, err)
	matcher := s.(*workspace.ResumeMatcher)
	resume := testutil.WriteFile(t, "cv.pdf", []byte("Engineer with Golang and Postgres experience"))
	match, err := matcher.Submit(ctx, workspace.ResumeInput{ResumePath: resume, JobDescription: "Golang, Postgres, Kafka"})
	require.NoError(t, err)
	assert.Equal(t, 2, match.KeywordMatch.Matched)
	assert.Equal(t, 3, match.KeywordMatch.Total)
	assert.Equal(t, 80.0, match.OverallMatch)
	assert.Equal(t, "Strong Match", match.Rating())

	assert.Equal(t, []string{agent.YouTubeSummarizer, agent.PDFQA, agent.ResumeMatcher}, c.ws.List())

	// a second client on the same storage restores without signing in again
	restored := newClient(t, ts.URL, dbPath)
	require.NoError(t, restored.session.Restore(ctx))
	assert.Equal(t, session.Authenticated, restored.session.Snapshot().State)
	assert.Equal(t, c.session.Credential(), restored.session.Credential())

	// revoking the account turns the next agent call into a global sign-out
	require.True(t, srv.DeleteUser("ada@example.com"))
	_, err = video.Submit(ctx, workspace.VideoInput{URL: "https://youtu.be/abc123"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, workspace.ErrSessionClosed) || remote.IsUnauthorized(err))

	assert.True(t, c.sawInvalidation())
	assert.Equal(t, session.Anonymous, c.session.Snapshot().State)
	assert.Equal(t, "", c.session.Credential())
	assert.Empty(t, c.ws.List())

	_, err = c.storage.LoadSession(ctx)
	assert.ErrorIs(t, err, store.ErrNotFound)

	// and a fresh login to the deleted account fails with the service's reason
	err = c.session.Login(ctx, "ada@example.com", "engine")
	require.Error(t, err)
	assert.Equal(t, "Invalid credentials", err.Error())
}
