// ABOUTME: HTTP handlers for the development service's auth and agent endpoints
// ABOUTME: Error bodies carry the reason in "message" as the real service does

package devserver

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/2389/coven-workspace/internal/auth"
	"github.com/2389/coven-workspace/internal/config"
	"github.com/2389/coven-workspace/internal/otp"
	"github.com/2389/coven-workspace/internal/validate"
)

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signupRequest struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type verifyRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

type authResponse struct {
	AccessToken string `json:"access_token"`
	User        User   `json:"user"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	if err := dec.Decode(v); err != nil {
		return errors.New("invalid JSON body")
	}
	return nil
}

// grant issues a token for u and writes the authenticated response.
func (s *Server) grant(w http.ResponseWriter, status int, u User) {
	token, err := s.verifier.Generate(u.ID, u.Email, s.cfg.TokenTTL)
	if err != nil {
		s.logger.Error("issuing token", "error", err)
		writeMessage(w, http.StatusInternalServerError, "Could not issue token")
		return
	}
	writeJSON(w, status, authResponse{AccessToken: token, User: u})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Email == "" || req.Password == "" {
		writeMessage(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	u, err := s.users.authenticate(req.Email, req.Password)
	switch {
	case errors.Is(err, ErrNotVerified):
		writeMessage(w, http.StatusForbidden, "Email not verified")
		return
	case err != nil:
		writeMessage(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	s.logger.Info("login", "user_id", u.ID)
	s.grant(w, http.StatusOK, u)
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validateSignup(req); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	immediate := s.cfg.SignupMode == config.SignupModeImmediate
	u, err := s.users.register(req.FullName, req.Email, req.Password, immediate)
	if errors.Is(err, ErrEmailTaken) {
		writeMessage(w, http.StatusBadRequest, "Email already registered")
		return
	}
	if err != nil {
		s.logger.Error("registering user", "error", err)
		writeMessage(w, http.StatusInternalServerError, "Signup failed")
		return
	}
	s.logger.Info("signup", "user_id", u.ID, "mode", s.cfg.SignupMode)

	if immediate {
		s.grant(w, http.StatusCreated, u)
		return
	}

	code, err := s.codes.Issue(u.Email)
	if err != nil {
		s.logger.Error("issuing code", "error", err)
		writeMessage(w, http.StatusInternalServerError, "Signup failed")
		return
	}
	// stands in for the verification email
	s.logger.Info("verification code issued", "email", u.Email, "otp", code)
	if s.onCode != nil {
		s.onCode(u.Email, code)
	}
	writeJSON(w, http.StatusCreated, map[string]string{
		"message": "Verification code sent to your email",
		"email":   u.Email,
	})
}

func validateSignup(req signupRequest) error {
	if err := validate.Required("full_name", req.FullName); err != nil {
		return err
	}
	if err := validate.Email("email", req.Email); err != nil {
		return err
	}
	return validate.Required("password", req.Password)
}

func (s *Server) handleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	switch err := s.codes.Verify(req.Email, req.OTP); {
	case errors.Is(err, otp.ErrNoPendingCode):
		writeMessage(w, http.StatusBadRequest, "No pending verification for this email")
		return
	case errors.Is(err, otp.ErrCodeMismatch):
		writeMessage(w, http.StatusBadRequest, "Invalid OTP")
		return
	case err != nil:
		writeMessage(w, http.StatusBadRequest, "OTP verification failed")
		return
	}

	u, err := s.users.markVerified(req.Email)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "No pending verification for this email")
		return
	}
	s.logger.Info("email verified", "user_id", u.ID)
	s.grant(w, http.StatusOK, u)
}

func (s *Server) handleSummarizeVideo(w http.ResponseWriter, r *http.Request) {
	var req struct {
		YouTubeURL string `json:"youtube_url"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validate.HTTPURL("youtube_url", req.YouTubeURL); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid YouTube URL")
		return
	}
	s.logger.Debug("summarize video", "user_id", auth.MustFromContext(r.Context()).UserID, "url", req.YouTubeURL)
	writeJSON(w, http.StatusOK, cannedVideo(req.YouTubeURL))
}

func (s *Server) handleAskFromPDF(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeMessage(w, http.StatusBadRequest, "Expected a multipart form")
		return
	}
	query := strings.TrimSpace(r.FormValue("query"))
	if query == "" {
		writeMessage(w, http.StatusBadRequest, "query is required")
		return
	}
	file, header, err := r.FormFile("pdf_file")
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "pdf_file is required")
		return
	}
	defer file.Close()

	pages, err := validate.PDFReader("pdf_file", header.Filename, file)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"answer": cannedAnswer(header.Filename, pages, query)})
}

func (s *Server) handleResumeMatcher(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeMessage(w, http.StatusBadRequest, "Expected a multipart form")
		return
	}
	description := strings.TrimSpace(r.FormValue("job_description"))
	if description == "" {
		writeMessage(w, http.StatusBadRequest, "job_description is required")
		return
	}
	file, _, err := r.FormFile("resume_file")
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "resume_file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Could not read resume_file")
		return
	}
	writeJSON(w, http.StatusOK, cannedResumeMatch(data, description))
}
