// ABOUTME: HTTP client for the agent service with bearer credential injection
// ABOUTME: A 401 response invalidates the bound session before the error reaches the caller

package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// maxResponseBytes bounds how much of a response body is read.
const maxResponseBytes = 16 << 20

// Session is the credential holder the client reads from and reports invalidation to.
type Session interface {
	// Credential returns the current bearer token, or "" when none is held.
	Credential() string
	// Invalidate is called synchronously when the service rejects credential with 401.
	Invalidate(credential string)
}

// Options configures a Client.
type Options struct {
	BaseURL    string
	Timeout    time.Duration // zero disables the per-request limit
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client sends requests to the remote service.
type Client struct {
	baseURL string
	timeout time.Duration
	http    *http.Client
	logger  *slog.Logger

	mu      sync.RWMutex
	session Session
}

// New creates a Client. Bind a Session before sending authenticated requests.
func New(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		timeout: opts.Timeout,
		http:    httpClient,
		logger:  logger.With("component", "remote"),
	}
}

// Bind sets the session whose credential is attached to requests.
func (c *Client) Bind(s Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = s
}

func (c *Client) boundSession() Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}

// Send performs req and returns the response body of a 2xx response.
// It fails with *NetworkError when no response arrives and *ServiceError otherwise.
func (c *Client) Send(ctx context.Context, req *Request) ([]byte, error) {
	body, contentType, err := req.encode()
	if err != nil {
		return nil, err
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method(), c.baseURL+req.Path, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	httpReq.Header.Set("Accept", "application/json")

	requestID := uuid.New().String()
	httpReq.Header.Set("X-Request-ID", requestID)

	session := c.boundSession()
	var credential string
	if session != nil {
		credential = session.Credential()
	}
	if credential != "" {
		httpReq.Header.Set("Authorization", "Bearer "+credential)
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		netErr := &NetworkError{Op: req.op(), Err: err, timeout: isTimeout(ctx, err)}
		c.logger.Warn("request failed",
			"op", req.op(),
			"request_id", requestID,
			"timeout", netErr.timeout,
			"error", err,
		)
		return nil, netErr
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &NetworkError{Op: req.op(), Err: fmt.Errorf("reading response: %w", err), timeout: isTimeout(ctx, err)}
	}

	c.logger.Debug("request completed",
		"op", req.op(),
		"request_id", requestID,
		"status", resp.StatusCode,
		"duration", time.Since(start),
		"authenticated", credential != "",
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		svcErr := &ServiceError{Status: resp.StatusCode, Body: data}
		if svcErr.Unauthorized() && session != nil {
			c.logger.Info("credential rejected, invalidating session", "op", req.op(), "request_id", requestID)
			session.Invalidate(credential)
		}
		return nil, svcErr
	}

	return data, nil
}

// SendJSON performs req and decodes a JSON response into out.
func (c *Client) SendJSON(ctx context.Context, req *Request, out any) error {
	data, err := c.Send(ctx, req)
	if err != nil {
		return err
	}
	return DecodeJSON(data, out)
}

// DecodeJSON decodes a response body into out.
func DecodeJSON(data []byte, out any) error {
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}
	return nil
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
