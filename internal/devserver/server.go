// ABOUTME: Development stand-in for the remote agent service
// ABOUTME: Serves the auth and agent endpoints over a chi router with canned agent payloads

package devserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/2389/coven-workspace/internal/auth"
	"github.com/2389/coven-workspace/internal/config"
	"github.com/2389/coven-workspace/internal/otp"
)

const (
	// maxUploadBytes bounds multipart bodies accepted by the agent endpoints.
	maxUploadBytes = 10 << 20
	// maxPendingCodes bounds the one-time code cache.
	maxPendingCodes = 10000
	shutdownTimeout = 10 * time.Second
)

// Options configures a Server.
type Options struct {
	Config    config.DevServerConfig
	OTPLength int
	Logger    *slog.Logger
	// OnCode, when set, receives every issued one-time code in addition to the log.
	OnCode func(email, code string)
}

// Server implements the remote service contract in memory.
type Server struct {
	cfg      config.DevServerConfig
	logger   *slog.Logger
	users    *userTable
	codes    *otp.Cache
	verifier *auth.JWTVerifier
	onCode   func(email, code string)
	router   chi.Router
}

// New creates a Server. The JWT secret must be at least auth.MinSecretLength bytes.
func New(opts Options) (*Server, error) {
	verifier, err := auth.NewJWTVerifier([]byte(opts.Config.JWTSecret))
	if err != nil {
		return nil, fmt.Errorf("creating token verifier: %w", err)
	}

	cfg := opts.Config
	if cfg.SignupMode == "" {
		cfg.SignupMode = config.SignupModeVerify
	}
	if cfg.TokenTTL == 0 {
		cfg.TokenTTL = config.DefaultTokenTTL
	}
	if cfg.OTPTTL == 0 {
		cfg.OTPTTL = config.DefaultOTPTTL
	}
	otpLength := opts.OTPLength
	if otpLength == 0 {
		otpLength = config.DefaultOTPLength
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		cfg:      cfg,
		logger:   logger.With("component", "devserver"),
		users:    newUserTable(),
		codes:    otp.New(cfg.OTPTTL, otpLength, maxPendingCodes),
		verifier: verifier,
		onCode:   opts.OnCode,
	}
	s.router = s.routes()
	return s, nil
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/health"))

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login/", s.handleLogin)
		r.Post("/auth/signup/", s.handleSignup)
		r.Post("/auth/verify-otp/", s.handleVerifyOTP)

		r.Group(func(r chi.Router) {
			r.Use(auth.HTTPAuthMiddleware(s.users, s.verifier))
			r.Post("/summarize-youtube/", s.handleSummarizeVideo)
			r.Post("/ask-from-pdf/", s.handleAskFromPDF)
			r.Post("/resume-matcher/", s.handleResumeMatcher)
		})
	})
	return r
}

// requestLogger logs one line per request at debug level, and warns on 5xx.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		level := slog.LevelDebug
		if ww.Status() >= http.StatusInternalServerError {
			level = slog.LevelWarn
		}
		s.logger.Log(r.Context(), level, "request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// Handler returns the service's HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("dev service listening", "addr", ln.Addr().String(), "signup_mode", s.cfg.SignupMode)
		errCh <- srv.Serve(ln)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
	}

	// ctx is already cancelled here, so shutdown gets a fresh deadline.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.logger.Info("shutting down dev service")
	shutdownErr := srv.Shutdown(shutdownCtx)
	s.Close()

	if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
		return serveErr
	}
	return shutdownErr
}

// Close releases background resources.
func (s *Server) Close() {
	s.codes.Close()
}

// DeleteUser removes an account so tokens issued for it stop working.
func (s *Server) DeleteUser(email string) bool {
	return s.users.remove(email)
}
