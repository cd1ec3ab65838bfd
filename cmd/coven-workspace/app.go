// ABOUTME: Command dispatcher for the interactive workspace client
// ABOUTME: Auth commands block; agent submissions run in the background and print when done

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/fatih/color"

	"github.com/2389/coven-workspace/internal/agent"
	"github.com/2389/coven-workspace/internal/remote"
	"github.com/2389/coven-workspace/internal/render"
	"github.com/2389/coven-workspace/internal/session"
	"github.com/2389/coven-workspace/internal/validate"
	"github.com/2389/coven-workspace/internal/workspace"
)

var (
	errColor  = color.New(color.FgRed)
	infoColor = color.New(color.FgCyan)
	dimColor  = color.New(color.Faint)
)

// lockedWriter serializes writes from the prompt loop and background submissions.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

type app struct {
	out     *lockedWriter
	session *session.Store
	ws      *workspace.Controller
	logger  *slog.Logger
	pending sync.WaitGroup
}

type command struct {
	usage string
	help  string
	run   func(a *app, ctx context.Context, args string)
}

var commands map[string]command

func init() {
	commands = map[string]command{
		"/login":  {"/login <email> <password>", "sign in", (*app).cmdLogin},
		"/signup": {"/signup <full name> <email> <password>", "create an account", (*app).cmdSignup},
		"/verify": {"/verify <code>", "confirm a signup with the emailed code", (*app).cmdVerify},
		"/logout": {"/logout", "sign out and close every agent", (*app).cmdLogout},
		"/whoami": {"/whoami", "show the signed-in user", (*app).cmdWhoami},
		"/agents": {"/agents", "list the agent catalogue", (*app).cmdAgents},
		"/open":   {"/open <agent>", "open an agent", (*app).cmdOpen},
		"/close":  {"/close <agent>", "close an agent and discard its state", (*app).cmdClose},
		"/min":    {"/min <agent>", "minimize or restore an agent", (*app).cmdMinimize},
		"/list":   {"/list", "list open agents", (*app).cmdList},
		"/video":  {"/video <youtube url>", "summarize a video", (*app).cmdVideo},
		"/doc":    {"/doc <file.pdf>", "choose the document for PDF Q&A", (*app).cmdDocument},
		"/ask":    {"/ask <question>", "ask about the chosen document", (*app).cmdAsk},
		"/resume": {"/resume <file> <job description>", "match a resume to a job", (*app).cmdResume},
		"/show":   {"/show <agent>", "show an agent's latest result", (*app).cmdShow},
		"/help":   {"/help", "show this help", (*app).cmdHelp},
	}
}

var commandOrder = []string{
	"/login", "/signup", "/verify", "/logout", "/whoami",
	"/agents", "/open", "/close", "/min", "/list",
	"/video", "/doc", "/ask", "/resume", "/show", "/help",
}

func (a *app) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

func (a *app) errorf(format string, args ...any) {
	errColor.Fprintf(a.out, "[error] "+format+"\n", args...)
}

func (a *app) prompt() {
	snap := a.session.Snapshot()
	switch snap.State {
	case session.Authenticated:
		a.printf("%s> ", snap.User.FullName)
	case session.AwaitingVerification:
		a.printf("(verify %s)> ", snap.PendingEmail)
	default:
		a.printf("> ")
	}
}

func (a *app) wait() {
	a.pending.Wait()
}

// dispatch runs one input line and reports whether the client should exit.
func (a *app) dispatch(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	name, args, _ := strings.Cut(line, " ")
	args = strings.TrimSpace(args)

	switch name {
	case "/quit", "/exit", "/q":
		return true
	}

	cmd, ok := commands[name]
	if !ok {
		a.errorf("unknown command %q, try /help", name)
		return false
	}
	cmd.run(a, ctx, args)
	return false
}

func (a *app) onSessionChange(c session.Change) {
	switch c.Cause {
	case session.CauseInvalidated:
		a.ws.CloseAll()
		errColor.Fprintln(a.out, "\nYour session has expired. Please sign in again.")
	case session.CauseLogout:
		a.ws.CloseAll()
	}
}

func (a *app) printStatus() {
	snap := a.session.Snapshot()
	switch snap.State {
	case session.Authenticated:
		a.printf("Signed in as %s <%s>\n", snap.User.FullName, snap.User.Email)
	case session.AwaitingVerification:
		a.printf("Awaiting verification for %s, use /verify <code>\n", snap.PendingEmail)
	default:
		a.printf("Not signed in, use /login or /signup\n")
	}
}

// describeError turns an error into the line shown to the user.
func describeError(err error, fallback string) string {
	var ne *remote.NetworkError
	var se *session.Error
	switch {
	case validate.IsValidation(err):
		return err.Error()
	case errors.As(err, &se):
		if errors.Is(se, session.ErrSuperseded) {
			return "signed out while the request was running"
		}
		return se.Reason
	case errors.Is(err, session.ErrNoPendingVerification),
		errors.Is(err, session.ErrInProgress),
		errors.Is(err, session.ErrAuthenticated):
		return err.Error()
	}

	switch {
	case errors.As(err, &ne):
		if ne.Timeout() {
			return "the service did not answer in time, try again"
		}
		return "cannot reach the service, try again"
	case errors.Is(err, workspace.ErrBusy):
		return "a request is already running for this agent"
	default:
		return remote.Reason(err, fallback)
	}
}

func (a *app) cmdLogin(ctx context.Context, args string) {
	fields := strings.Fields(args)
	if len(fields) != 2 {
		a.errorf("usage: %s", commands["/login"].usage)
		return
	}
	if err := a.session.Login(ctx, fields[0], fields[1]); err != nil {
		a.errorf("%s", describeError(err, session.ReasonLogin))
		return
	}
	a.printStatus()
}

func (a *app) cmdSignup(ctx context.Context, args string) {
	fields := strings.Fields(args)
	if len(fields) < 3 {
		a.errorf("usage: %s", commands["/signup"].usage)
		return
	}
	n := len(fields)
	fullName := strings.Join(fields[:n-2], " ")
	if err := a.session.Signup(ctx, fullName, fields[n-2], fields[n-1]); err != nil {
		a.errorf("%s", describeError(err, session.ReasonSignup))
		return
	}
	a.printStatus()
}

func (a *app) cmdVerify(ctx context.Context, args string) {
	if err := a.session.Verify(ctx, args); err != nil {
		a.errorf("%s", describeError(err, session.ReasonVerify))
		return
	}
	a.printStatus()
}

func (a *app) cmdLogout(ctx context.Context, _ string) {
	if err := a.session.Logout(ctx); err != nil {
		a.errorf("%v", err)
	}
	a.printStatus()
}

func (a *app) cmdWhoami(_ context.Context, _ string) {
	a.printStatus()
}

// requireAuth reports whether the workspace is usable and explains when not.
func (a *app) requireAuth() bool {
	if a.session.Snapshot().State != session.Authenticated {
		a.errorf("sign in first with /login or /signup")
		return false
	}
	return true
}

func (a *app) isOpen(id string) bool {
	_, ok := a.ws.Session(id)
	return ok
}

func (a *app) cmdAgents(_ context.Context, _ string) {
	render.Agents(a.out, a.ws.Registry().List(), a.isOpen)
}

func (a *app) cmdOpen(_ context.Context, id string) {
	if !a.requireAuth() {
		return
	}
	if _, err := a.ws.Open(id); err != nil {
		if errors.Is(err, workspace.ErrUnavailableAgent) {
			a.errorf("%s is not available", id)
			return
		}
		a.errorf("%v", err)
		return
	}
	desc, _ := a.ws.Registry().Describe(id)
	infoColor.Fprintf(a.out, "Opened %s\n", desc.Name)
}

func (a *app) cmdClose(_ context.Context, id string) {
	if !a.ws.Close(id) {
		a.errorf("%s is not open", id)
		return
	}
	a.printf("Closed %s\n", id)
}

func (a *app) cmdMinimize(_ context.Context, id string) {
	minimized, ok := a.ws.ToggleMinimized(id)
	if !ok {
		a.errorf("%s is not open", id)
		return
	}
	if minimized {
		a.printf("Minimized %s\n", id)
	} else {
		a.printf("Restored %s\n", id)
	}
}

func (a *app) cmdList(_ context.Context, _ string) {
	open := a.ws.List()
	if len(open) == 0 {
		a.printf("No agents open. Use /agents and /open <agent>.\n")
		return
	}
	for _, id := range open {
		desc, _ := a.ws.Registry().Describe(id)
		s, _ := a.ws.Session(id)
		var flags []string
		if a.ws.Minimized(id) {
			flags = append(flags, "minimized")
		}
		if s != nil && s.Busy() {
			flags = append(flags, "working")
		}
		suffix := ""
		if len(flags) > 0 {
			suffix = dimColor.Sprintf(" (%s)", strings.Join(flags, ", "))
		}
		a.printf("  %-20s %s%s\n", id, desc.Name, suffix)
	}
}

// openSession returns the open session for id, opening it if needed.
func openSession[T workspace.Session](a *app, id string) (T, bool) {
	var zero T
	if !a.requireAuth() {
		return zero, false
	}
	s, err := a.ws.Open(id)
	if err != nil {
		a.errorf("%v", err)
		return zero, false
	}
	typed, ok := s.(T)
	if !ok {
		a.errorf("%s has an unexpected session type", id)
		return zero, false
	}
	return typed, true
}

// background runs fn without blocking the prompt.
func (a *app) background(fn func()) {
	a.pending.Add(1)
	go func() {
		defer a.pending.Done()
		fn()
	}()
}

func (a *app) cmdVideo(ctx context.Context, url string) {
	video, ok := openSession[*workspace.VideoSummarizer](a, agent.YouTubeSummarizer)
	if !ok {
		return
	}
	a.background(func() {
		summary, err := video.Submit(ctx, workspace.VideoInput{URL: url})
		if errors.Is(err, workspace.ErrSessionClosed) {
			return
		}
		if err != nil {
			a.errorf("video: %s", describeError(err, "Failed to summarize video"))
			return
		}
		a.printf("\n")
		render.VideoSummary(a.out, summary)
	})
	dimColor.Fprintln(a.out, "Summarizing...")
}

func (a *app) cmdDocument(_ context.Context, path string) {
	qa, ok := openSession[*workspace.DocumentQA](a, agent.PDFQA)
	if !ok {
		return
	}
	doc, err := qa.SetDocument(path)
	if err != nil {
		a.errorf("%s", describeError(err, "Cannot use that document"))
		return
	}
	a.printf("Using %s (%d pages). Ask with /ask <question>.\n", doc.Name(), doc.Pages)
}

func (a *app) cmdAsk(ctx context.Context, question string) {
	qa, ok := openSession[*workspace.DocumentQA](a, agent.PDFQA)
	if !ok {
		return
	}
	a.background(func() {
		answer, err := qa.Submit(ctx, question)
		if errors.Is(err, workspace.ErrSessionClosed) {
			return
		}
		if err != nil {
			a.errorf("pdf-qa: %s", describeError(err, "Failed to get an answer"))
			return
		}
		a.printf("\n")
		render.Conversation(a.out, []workspace.Entry{answer})
	})
}

func (a *app) cmdResume(ctx context.Context, args string) {
	path, description, _ := strings.Cut(args, " ")
	matcher, ok := openSession[*workspace.ResumeMatcher](a, agent.ResumeMatcher)
	if !ok {
		return
	}
	a.background(func() {
		match, err := matcher.Submit(ctx, workspace.ResumeInput{ResumePath: path, JobDescription: strings.TrimSpace(description)})
		if errors.Is(err, workspace.ErrSessionClosed) {
			return
		}
		if err != nil {
			a.errorf("resume: %s", describeError(err, "Failed to match resume"))
			return
		}
		a.printf("\n")
		render.ResumeMatch(a.out, match)
	})
	dimColor.Fprintln(a.out, "Matching...")
}

func (a *app) cmdShow(_ context.Context, id string) {
	s, ok := a.ws.Session(id)
	if !ok {
		a.errorf("%s is not open", id)
		return
	}
	switch s := s.(type) {
	case *workspace.VideoSummarizer:
		if v, ok := s.Result(); ok {
			render.VideoSummary(a.out, v)
			return
		}
	case *workspace.ResumeMatcher:
		if m, ok := s.Result(); ok {
			render.ResumeMatch(a.out, m)
			return
		}
	case *workspace.DocumentQA:
		if doc, ok := s.Document(); ok {
			a.printf("Document: %s (%d pages)\n", doc.Name(), doc.Pages)
		}
		if log := s.Log(); len(log) > 0 {
			render.Conversation(a.out, log)
			return
		}
	}
	if s.Busy() {
		a.printf("Working...\n")
		return
	}
	a.printf("Nothing yet.\n")
}

func (a *app) cmdHelp(_ context.Context, _ string) {
	a.printf("Commands:\n")
	for _, name := range commandOrder {
		c := commands[name]
		a.printf("  %-40s %s\n", c.usage, dimColor.Sprint(c.help))
	}
	a.printf("  %-40s %s\n", "/quit", dimColor.Sprint("exit"))
}
