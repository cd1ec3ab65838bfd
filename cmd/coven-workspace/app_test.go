// ABOUTME: Tests for the interactive client's command handling
// ABOUTME: Runs command lines against an in-process dev service and checks the printed output

package main

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/coven-workspace/internal/agent"
	"github.com/2389/coven-workspace/internal/config"
	"github.com/2389/coven-workspace/internal/devserver"
	"github.com/2389/coven-workspace/internal/remote"
	"github.com/2389/coven-workspace/internal/session"
	"github.com/2389/coven-workspace/internal/store"
	"github.com/2389/coven-workspace/internal/testutil"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

type harness struct {
	app   *app
	out   *bytes.Buffer
	srv   *devserver.Server
	mu    sync.Mutex
	codes map[string]string
}

func newHarness(t *testing.T, mode string) *harness {
	t.Helper()
	h := &harness{out: &bytes.Buffer{}, codes: make(map[string]string)}

	srv, err := devserver.New(devserver.Options{
		Config:    config.DevServerConfig{JWTSecret: "client-test-secret-of-at-least-32-bytes", SignupMode: mode},
		OTPLength: config.DefaultOTPLength,
		OnCode: func(email, code string) {
			h.mu.Lock()
			h.codes[email] = code
			h.mu.Unlock()
		},
	})
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		srv.Close()
	})
	h.srv = srv

	cfg := config.Default()
	cfg.Remote.BaseURL = ts.URL
	cfg.Auth.SignupMode = mode
	h.app = newApp(cfg, store.NewMockStore(), h.out, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
	return h
}

// run dispatches each line, waits for background work, and returns what was printed.
func (h *harness) run(lines ...string) string {
	h.out.Reset()
	for _, line := range lines {
		h.app.dispatch(context.Background(), line)
		h.app.wait()
	}
	return h.out.String()
}

func (h *harness) code(email string) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.codes[email]
}

func TestDispatch_Quit(t *testing.T) {
	h := newHarness(t, config.SignupModeImmediate)
	for _, q := range []string{"/quit", "/exit", "/q"} {
		assert.True(t, h.app.dispatch(context.Background(), q))
	}
	assert.False(t, h.app.dispatch(context.Background(), "   "))
}

func TestDispatch_UnknownCommand(t *testing.T) {
	h := newHarness(t, config.SignupModeImmediate)
	assert.Contains(t, h.run("/frobnicate"), `unknown command "/frobnicate"`)
}

func TestHelpListsEveryCommand(t *testing.T) {
	h := newHarness(t, config.SignupModeImmediate)
	out := h.run("/help")
	for _, name := range commandOrder {
		assert.Contains(t, out, name)
	}
	assert.Len(t, commandOrder, len(commands))
}

func TestSignupVerifyFlow(t *testing.T) {
	h := newHarness(t, config.SignupModeVerify)

	out := h.run("/signup Ada King Lovelace ada@example.com engine")
	assert.Contains(t, out, "Awaiting verification for ada@example.com")

	out = h.run("/verify 12")
	assert.Contains(t, out, "otp")

	out = h.run("/verify " + h.code("ada@example.com"))
	assert.Contains(t, out, "Signed in as Ada King Lovelace <ada@example.com>")
}

func TestLoginErrors(t *testing.T) {
	h := newHarness(t, config.SignupModeImmediate)

	assert.Contains(t, h.run("/login onlyone"), "usage: /login")
	assert.Contains(t, h.run("/login ada@example.com wrong"), "Invalid credentials")
	assert.Contains(t, h.run("/whoami"), "Not signed in")
}

func TestSessionErrorsKeepTheirReason(t *testing.T) {
	h := newHarness(t, config.SignupModeImmediate)

	assert.Equal(t, "[error] no signup awaiting verification\n", h.run("/verify 1234"))

	h.run("/signup Ada Lovelace ada@example.com engine")
	assert.Contains(t, h.run("/login ada@example.com engine"), "already signed in")
	assert.Contains(t, h.run("/signup Ada Lovelace ada@example.com engine"), "already signed in")
}

func TestDescribeError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"in progress", session.ErrInProgress, "authentication already in progress"},
		{"superseded", &session.Error{Op: "login", Reason: session.ReasonLogin, Err: session.ErrSuperseded}, "signed out while the request was running"},
		{"literal reason", &session.Error{Op: "verify", Reason: "Invalid OTP", Err: errors.New("400")}, "Invalid OTP"},
		{"network", &remote.NetworkError{Op: "POST /x", Err: errors.New("refused")}, "cannot reach the service, try again"},
		{"service", &remote.ServiceError{Status: 400, Body: []byte(`{"message":"Invalid YouTube URL"}`)}, "Invalid YouTube URL"},
		{"fallback", errors.New("boom"), "Failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, describeError(tt.err, "Failed"))
		})
	}
}

func TestAgentsRequireSignIn(t *testing.T) {
	h := newHarness(t, config.SignupModeImmediate)
	assert.Contains(t, h.run("/open "+agent.YouTubeSummarizer), "sign in first")
	assert.Contains(t, h.run("/video https://youtu.be/x"), "sign in first")
	assert.Empty(t, h.app.ws.List())
}

func TestWorkspaceCommands(t *testing.T) {
	h := newHarness(t, config.SignupModeImmediate)
	h.run("/signup Ada Lovelace ada@example.com engine")
	require.Equal(t, session.Authenticated, h.app.session.Snapshot().State)

	out := h.run("/agents")
	assert.Contains(t, out, agent.Translator)
	assert.Contains(t, out, "coming soon")

	assert.Contains(t, h.run("/open "+agent.Translator), "is not available")
	assert.Contains(t, h.run("/open "+agent.ResumeMatcher), "Opened Resume Matcher")
	h.run("/open " + agent.ResumeMatcher)
	assert.Equal(t, []string{agent.ResumeMatcher}, h.app.ws.List())

	assert.Contains(t, h.run("/min "+agent.ResumeMatcher), "Minimized")
	assert.Contains(t, h.run("/list"), "minimized")
	assert.Contains(t, h.run("/min "+agent.ResumeMatcher), "Restored")

	out = h.run("/video https://youtu.be/abc123")
	assert.Contains(t, out, "Building AI Applications (abc123)")
	assert.Contains(t, out, "Key points")
	assert.Equal(t, []string{agent.ResumeMatcher, agent.YouTubeSummarizer}, h.app.ws.List())
	assert.Contains(t, h.run("/show "+agent.YouTubeSummarizer), "abc123")

	pdf := testutil.WriteFile(t, "paper.pdf", testutil.MinimalPDF())
	assert.Contains(t, h.run("/doc "+pdf), "Using paper.pdf (1 pages)")
	out = h.run("/ask What is it about?")
	assert.Contains(t, out, "←")
	out = h.run("/show " + agent.PDFQA)
	assert.Contains(t, out, "→ What is it about?")
	assert.Contains(t, out, "Document: paper.pdf")

	resume := testutil.WriteFile(t, "cv.pdf", []byte("golang postgres"))
	out = h.run("/resume " + resume + " Golang, Postgres")
	assert.Contains(t, out, "Overall match: 100%")
	assert.Contains(t, out, "Strong Match")

	assert.Contains(t, h.run("/resume /nope/cv.txt Golang"), "resume_file")

	assert.Contains(t, h.run("/close "+agent.PDFQA), "Closed")
	assert.Contains(t, h.run("/close "+agent.PDFQA), "is not open")
	assert.Contains(t, h.run("/show "+agent.PDFQA), "is not open")
}

func TestLogoutClosesWorkspace(t *testing.T) {
	h := newHarness(t, config.SignupModeImmediate)
	h.run("/signup Ada Lovelace ada@example.com engine", "/open "+agent.YouTubeSummarizer)
	require.Len(t, h.app.ws.List(), 1)

	assert.Contains(t, h.run("/logout"), "Not signed in")
	assert.Empty(t, h.app.ws.List())
}

func TestRevokedTokenSignsOut(t *testing.T) {
	h := newHarness(t, config.SignupModeImmediate)
	h.run("/signup Ada Lovelace ada@example.com engine", "/open "+agent.ResumeMatcher)
	require.True(t, h.srv.DeleteUser("ada@example.com"))

	out := h.run("/video https://youtu.be/abc123")
	assert.Contains(t, out, "Your session has expired")
	assert.Equal(t, session.Anonymous, h.app.session.Snapshot().State)
	assert.Empty(t, h.app.ws.List())
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("COVEN_WORKSPACE_CONFIG", "/nonexistent/workspace.yaml")
	cfg, err := loadConfig("", "http://example.test:9000/", "debug")
	require.NoError(t, err)
	assert.Equal(t, "http://example.test:9000", cfg.Remote.BaseURL)
	assert.Equal(t, "debug", cfg.Logging.Level)

	_, err = loadConfig("", "ftp://nope", "")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "base_url"))
}
