// ABOUTME: Interactive terminal client for the multi-agent workspace
// ABOUTME: Wires config, durable session storage, the remote client and the workspace controller

package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	flag "github.com/spf13/pflag"

	"github.com/2389/coven-workspace/internal/agent"
	"github.com/2389/coven-workspace/internal/config"
	"github.com/2389/coven-workspace/internal/logging"
	"github.com/2389/coven-workspace/internal/remote"
	"github.com/2389/coven-workspace/internal/session"
	"github.com/2389/coven-workspace/internal/store"
	"github.com/2389/coven-workspace/internal/workspace"
)

// version is set at build time.
var version = "dev"

func main() {
	configPath := flag.String("config", "", "config file (default $COVEN_WORKSPACE_CONFIG or ~/.config/coven/workspace.yaml)")
	server := flag.StringP("server", "s", "", "remote service URL (overrides remote.base_url)")
	logLevel := flag.String("log-level", "", "debug, info, warn or error (overrides logging.level)")
	showVersion := flag.BoolP("version", "v", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("coven-workspace %s\n", version)
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, *configPath, *server, *logLevel); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("\nGoodbye!")
}

func loadConfig(path, server, logLevel string) (*config.Config, error) {
	if path == "" {
		path = config.Path()
	}
	cfg, err := config.LoadOrDefault(path)
	if err != nil {
		return nil, err
	}
	if server != "" {
		cfg.Remote.BaseURL = strings.TrimRight(server, "/")
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

func run(ctx context.Context, configPath, server, logLevel string) error {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("loading .env: %w", err)
	}

	cfg, err := loadConfig(configPath, server, logLevel)
	if err != nil {
		return err
	}

	// logs go to stderr so they do not interleave with rendered results
	logger := logging.New(cfg.Logging, os.Stderr)
	slog.SetDefault(logger)

	storage, err := store.NewSQLiteStore(cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("opening session storage: %w", err)
	}
	defer storage.Close()

	a := newApp(cfg, storage, os.Stdout, logger)
	if err := a.session.Restore(ctx); err != nil {
		logger.Warn("restoring session", "error", err)
	}

	color.New(color.Bold).Printf("coven-workspace %s", version)
	fmt.Printf(" connected to %s\n", cfg.Remote.BaseURL)
	a.printStatus()
	fmt.Println("Type /help for commands. Ctrl+C to quit.")
	fmt.Println()

	return a.loop(ctx, os.Stdin)
}

// newApp wires the session store, remote client and workspace.
func newApp(cfg *config.Config, storage store.SessionStore, out io.Writer, logger *slog.Logger) *app {
	client := remote.New(remote.Options{
		BaseURL: cfg.Remote.BaseURL,
		Timeout: cfg.Remote.Timeout,
		Logger:  logger,
	})
	sess := session.New(session.Options{
		Storage:    storage,
		Client:     client,
		SignupMode: cfg.Auth.SignupMode,
		OTPLength:  cfg.Auth.OTPLength,
		Logger:     logger,
	})
	ws := workspace.NewController(workspace.Options{
		Registry: agent.Default(),
		Caller:   client,
		Logger:   logger,
	})

	a := &app{
		out:     &lockedWriter{w: out},
		session: sess,
		ws:      ws,
		logger:  logger,
	}
	sess.Subscribe(a.onSessionChange)
	return a
}

// loop reads commands until EOF, /quit or cancellation, then waits for
// in-flight agent requests to finish.
func (a *app) loop(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	lines := make(chan string)
	errCh := make(chan error, 1)

	go func() {
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		if err := scanner.Err(); err != nil {
			errCh <- err
			return
		}
		errCh <- io.EOF
	}()

	defer a.wait()
	for {
		a.prompt()
		select {
		case <-ctx.Done():
			return nil
		case err := <-errCh:
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("reading input: %w", err)
		case line := <-lines:
			if quit := a.dispatch(ctx, line); quit {
				return nil
			}
		}
	}
}
