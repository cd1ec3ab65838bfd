// ABOUTME: Development stand-in for the remote agent service with canned agent answers
// ABOUTME: Usage: fake-service [--config workspace.yaml] [--addr localhost:8000]

package main

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	flag "github.com/spf13/pflag"

	"github.com/2389/coven-workspace/internal/config"
	"github.com/2389/coven-workspace/internal/devserver"
	"github.com/2389/coven-workspace/internal/logging"
)

func main() {
	configPath := flag.String("config", "", "config file (default $COVEN_WORKSPACE_CONFIG or ~/.config/coven/workspace.yaml)")
	addr := flag.StringP("addr", "a", "", "listen address (overrides devserver.http_addr)")
	signupMode := flag.String("signup-mode", "", "verify or immediate (overrides devserver.signup_mode)")
	flag.Parse()

	if err := run(*configPath, *addr, *signupMode); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, addr, signupMode string) error {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("loading .env: %w", err)
	}

	if configPath == "" {
		configPath = config.Path()
	}
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return err
	}
	if addr != "" {
		cfg.DevServer.HTTPAddr = addr
	}
	if signupMode != "" {
		cfg.DevServer.SignupMode = signupMode
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	logger := logging.New(cfg.Logging, os.Stderr)
	slog.SetDefault(logger)

	if cfg.DevServer.JWTSecret == "" {
		secret, err := randomSecret()
		if err != nil {
			return err
		}
		cfg.DevServer.JWTSecret = secret
		logger.Warn("devserver.jwt_secret not set, using a random secret; tokens will not survive a restart")
	}
	if err := cfg.ValidateDevServer(); err != nil {
		return err
	}

	srv, err := devserver.New(devserver.Options{
		Config:    cfg.DevServer,
		OTPLength: cfg.Auth.OTPLength,
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return srv.Run(ctx, cfg.DevServer.HTTPAddr)
}

func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating secret: %w", err)
	}
	return base64.StdEncoding.EncodeToString(b), nil
}
