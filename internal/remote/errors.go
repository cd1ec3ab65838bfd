// ABOUTME: Error types returned by the remote client
// ABOUTME: NetworkError for transport failures and timeouts, ServiceError for non-2xx responses

package remote

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// NetworkError reports that no response reached the client.
type NetworkError struct {
	Op  string // "POST /api/summarize-youtube/"
	Err error
	// timeout is set when the request exceeded the client timeout or its context deadline
	timeout bool
}

func (e *NetworkError) Error() string {
	if e.timeout {
		return fmt.Sprintf("%s: request timed out", e.Op)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// Timeout reports whether the request failed by exceeding its time limit.
func (e *NetworkError) Timeout() bool { return e.timeout }

// ServiceError reports a response with a non-success status.
type ServiceError struct {
	Status int
	Body   []byte
}

func (e *ServiceError) Error() string {
	if msg := e.Message(); msg != "" {
		return fmt.Sprintf("service returned %d: %s", e.Status, msg)
	}
	return fmt.Sprintf("service returned %d", e.Status)
}

// Unauthorized reports whether the service rejected the credential.
func (e *ServiceError) Unauthorized() bool {
	return e.Status == http.StatusUnauthorized
}

// Message extracts a human-readable reason from the body.
// JSON bodies are searched for "message", "error" and "detail" in that order;
// short plain-text bodies are returned as-is.
func (e *ServiceError) Message() string {
	var body map[string]any
	if err := json.Unmarshal(e.Body, &body); err == nil {
		for _, key := range []string{"message", "error", "detail"} {
			if s, ok := body[key].(string); ok && s != "" {
				return s
			}
		}
		return ""
	}

	text := strings.TrimSpace(string(e.Body))
	if len(text) > 200 || strings.HasPrefix(text, "<") {
		return ""
	}
	return text
}

// IsUnauthorized reports whether err is or wraps a 401 ServiceError.
func IsUnauthorized(err error) bool {
	var se *ServiceError
	return errors.As(err, &se) && se.Unauthorized()
}

// Reason returns the service's failure reason carried by err, or fallback.
func Reason(err error, fallback string) string {
	var se *ServiceError
	if errors.As(err, &se) {
		if msg := se.Message(); msg != "" {
			return msg
		}
	}
	return fallback
}
