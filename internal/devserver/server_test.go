// ABOUTME: Tests for the development service's HTTP contract
// ABOUTME: Exercises auth flows, bearer enforcement and the canned agent endpoints over httptest

package devserver

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/coven-workspace/internal/config"
	"github.com/2389/coven-workspace/internal/testutil"
)

const testSecret = "test-secret-that-is-at-least-32-bytes-long"

// codeBox collects codes passed to OnCode.
type codeBox struct {
	mu    sync.Mutex
	codes map[string]string
}

func (b *codeBox) put(email, code string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.codes == nil {
		b.codes = make(map[string]string)
	}
	b.codes[email] = code
}

func (b *codeBox) get(email string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.codes[email]
}

func newTestServer(t *testing.T, mode string) (*Server, *httptest.Server, *codeBox) {
	t.Helper()
	box := &codeBox{}
	s, err := New(Options{
		Config:    config.DevServerConfig{JWTSecret: testSecret, SignupMode: mode},
		OTPLength: 4,
		OnCode:    box.put,
	})
	require.NoError(t, err)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		ts.Close()
		s.Close()
	})
	return s, ts, box
}

func postJSON(t *testing.T, url, token string, body any) (int, map[string]any) {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(data))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return do(t, req)
}

func postForm(t *testing.T, url, token string, fields map[string]string, fileField, filename string, file []byte) (int, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if fileField != "" {
		fw, err := mw.CreateFormFile(fileField, filename)
		require.NoError(t, err)
		_, err = fw.Write(file)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return do(t, req)
}

func do(t *testing.T, req *http.Request) (int, map[string]any) {
	t.Helper()
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]any
	if len(data) > 0 {
		require.NoError(t, json.Unmarshal(data, &out), "body: %s", data)
	}
	return resp.StatusCode, out
}

// signupVerified registers and verifies an account, returning its token.
func signupVerified(t *testing.T, ts *httptest.Server, box *codeBox, email string) string {
	t.Helper()
	status, _ := postJSON(t, ts.URL+"/api/auth/signup/", "", map[string]string{
		"full_name": "Grace Hopper", "email": email, "password": "cobol",
	})
	require.Equal(t, http.StatusCreated, status)

	status, body := postJSON(t, ts.URL+"/api/auth/verify-otp/", "", map[string]string{"email": email, "otp": box.get(email)})
	require.Equal(t, http.StatusOK, status)
	return body["access_token"].(string)
}

func TestNew_WeakSecret(t *testing.T) {
	_, err := New(Options{Config: config.DevServerConfig{JWTSecret: "short"}})
	require.Error(t, err)
}

func TestHealth(t *testing.T) {
	_, ts, _ := newTestServer(t, config.SignupModeVerify)
	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSignupVerifyLogin(t *testing.T) {
	_, ts, box := newTestServer(t, config.SignupModeVerify)

	status, body := postJSON(t, ts.URL+"/api/auth/signup/", "", map[string]string{
		"full_name": "Grace Hopper", "email": "Grace@Example.com", "password": "cobol",
	})
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "grace@example.com", body["email"])
	assert.NotEmpty(t, body["message"])
	assert.NotContains(t, body, "access_token")

	code := box.get("grace@example.com")
	require.Len(t, code, 4)

	// unverified accounts cannot log in
	status, body = postJSON(t, ts.URL+"/api/auth/login/", "", map[string]string{"email": "grace@example.com", "password": "cobol"})
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "Email not verified", body["message"])

	status, body = postJSON(t, ts.URL+"/api/auth/verify-otp/", "", map[string]string{"email": "grace@example.com", "otp": code})
	require.Equal(t, http.StatusOK, status)
	assert.NotEmpty(t, body["access_token"])
	user := body["user"].(map[string]any)
	assert.Equal(t, "Grace Hopper", user["full_name"])
	assert.NotEmpty(t, user["id"])

	// codes are single use
	status, _ = postJSON(t, ts.URL+"/api/auth/verify-otp/", "", map[string]string{"email": "grace@example.com", "otp": code})
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = postJSON(t, ts.URL+"/api/auth/login/", "", map[string]string{"email": "grace@example.com", "password": "cobol"})
	require.Equal(t, http.StatusOK, status)
	assert.NotEmpty(t, body["access_token"])
}

func TestSignup_Rejections(t *testing.T) {
	_, ts, _ := newTestServer(t, config.SignupModeVerify)
	url := ts.URL + "/api/auth/signup/"

	status, body := postJSON(t, url, "", map[string]string{"full_name": "", "email": "a@b.co", "password": "x"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body["message"], "full_name")

	status, _ = postJSON(t, url, "", map[string]string{"full_name": "A", "email": "a@b.co", "password": "x"})
	require.Equal(t, http.StatusCreated, status)

	status, body = postJSON(t, url, "", map[string]string{"full_name": "A", "email": "A@B.co", "password": "y"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Email already registered", body["message"])
}

func TestVerify_WrongCode(t *testing.T) {
	_, ts, box := newTestServer(t, config.SignupModeVerify)
	postJSON(t, ts.URL+"/api/auth/signup/", "", map[string]string{"full_name": "A", "email": "a@b.co", "password": "x"})

	wrong := "0000"
	if box.get("a@b.co") == wrong {
		wrong = "1111"
	}
	status, body := postJSON(t, ts.URL+"/api/auth/verify-otp/", "", map[string]string{"email": "a@b.co", "otp": wrong})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Invalid OTP", body["message"])

	status, body = postJSON(t, ts.URL+"/api/auth/verify-otp/", "", map[string]string{"email": "nobody@b.co", "otp": "1234"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "No pending verification for this email", body["message"])
}

func TestSignup_ImmediateMode(t *testing.T) {
	_, ts, box := newTestServer(t, config.SignupModeImmediate)

	status, body := postJSON(t, ts.URL+"/api/auth/signup/", "", map[string]string{"full_name": "A", "email": "a@b.co", "password": "x"})
	require.Equal(t, http.StatusCreated, status)
	assert.NotEmpty(t, body["access_token"])
	assert.Empty(t, box.get("a@b.co"), "immediate signups issue no code")
}

func TestLogin_InvalidCredentials(t *testing.T) {
	_, ts, box := newTestServer(t, config.SignupModeVerify)
	signupVerified(t, ts, box, "a@b.co")

	for _, creds := range []map[string]string{
		{"email": "a@b.co", "password": "wrong"},
		{"email": "nobody@b.co", "password": "cobol"},
	} {
		status, body := postJSON(t, ts.URL+"/api/auth/login/", "", creds)
		assert.Equal(t, http.StatusUnauthorized, status)
		assert.Equal(t, "Invalid credentials", body["message"])
	}
}

func TestAgentEndpoints_RequireBearer(t *testing.T) {
	_, ts, _ := newTestServer(t, config.SignupModeVerify)

	for _, path := range []string{"/api/summarize-youtube/", "/api/ask-from-pdf/", "/api/resume-matcher/"} {
		status, body := postJSON(t, ts.URL+path, "", map[string]string{})
		assert.Equal(t, http.StatusUnauthorized, status, path)
		assert.NotEmpty(t, body["detail"], path)

		status, _ = postJSON(t, ts.URL+path, "garbage", map[string]string{})
		assert.Equal(t, http.StatusUnauthorized, status, path)
	}
}

func TestDeleteUser_RevokesToken(t *testing.T) {
	s, ts, box := newTestServer(t, config.SignupModeVerify)
	token := signupVerified(t, ts, box, "a@b.co")

	status, _ := postJSON(t, ts.URL+"/api/summarize-youtube/", token, map[string]string{"youtube_url": "https://youtu.be/abc"})
	require.Equal(t, http.StatusOK, status)

	require.True(t, s.DeleteUser("a@b.co"))
	status, body := postJSON(t, ts.URL+"/api/summarize-youtube/", token, map[string]string{"youtube_url": "https://youtu.be/abc"})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "User not found", body["detail"])
}

func TestSummarizeVideo(t *testing.T) {
	_, ts, box := newTestServer(t, config.SignupModeVerify)
	token := signupVerified(t, ts, box, "a@b.co")

	status, body := postJSON(t, ts.URL+"/api/summarize-youtube/", token, map[string]string{"youtube_url": "https://www.youtube.com/watch?v=dQw4w9WgXcQ"})
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body["title"], "dQw4w9WgXcQ")
	summary := body["summary"].(map[string]any)
	assert.NotEmpty(t, summary["key_points"])
	assert.NotEmpty(t, summary["conclusion"])

	// stable for the same video
	_, again := postJSON(t, ts.URL+"/api/summarize-youtube/", token, map[string]string{"youtube_url": "https://www.youtube.com/watch?v=dQw4w9WgXcQ"})
	assert.Equal(t, body["view_count"], again["view_count"])

	status, body = postJSON(t, ts.URL+"/api/summarize-youtube/", token, map[string]string{"youtube_url": "not a url"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Invalid YouTube URL", body["message"])
}

func TestAskFromPDF(t *testing.T) {
	_, ts, box := newTestServer(t, config.SignupModeVerify)
	token := signupVerified(t, ts, box, "a@b.co")
	url := ts.URL + "/api/ask-from-pdf/"

	status, body := postForm(t, url, token, map[string]string{"query": "What is this?"}, "pdf_file", "paper.pdf", testutil.MinimalPDF())
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body["answer"], "paper.pdf")
	assert.Contains(t, body["answer"], "1 pages")

	status, body = postForm(t, url, token, map[string]string{"query": "What?"}, "pdf_file", "fake.pdf", []byte("not a pdf"))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body["message"], "not a valid PDF")

	status, _ = postForm(t, url, token, nil, "pdf_file", "paper.pdf", testutil.MinimalPDF())
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = postForm(t, url, token, map[string]string{"query": "What?"}, "", "", nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestResumeMatcher(t *testing.T) {
	_, ts, box := newTestServer(t, config.SignupModeVerify)
	token := signupVerified(t, ts, box, "a@b.co")

	resume := []byte("Senior engineer. Built Kubernetes operators in Golang.")
	status, body := postForm(t, ts.URL+"/api/resume-matcher/", token,
		map[string]string{"job_description": "Golang engineer, Kubernetes, Terraform"},
		"resume_file", "cv.pdf", resume)
	require.Equal(t, http.StatusOK, status)

	km := body["keyword_match"].(map[string]any)
	assert.Equal(t, float64(4), km["total"])
	assert.Equal(t, float64(3), km["matched"])
	assert.ElementsMatch(t, []any{"engineer", "golang", "kubernetes"}, km["keywords"])
	assert.Equal(t, float64(85), body["overall_match"])
	assert.Contains(t, body["gaps"], "No mention of terraform")
	assert.Contains(t, body, "section_scores")
}

func TestJobKeywords(t *testing.T) {
	got := jobKeywords("Go, C++ and C# devs: Python python PYTHON; SQL expert")
	assert.Equal(t, []string{"devs", "python", "expert"}, got)
}
