// ABOUTME: HTTP middleware for JWT authentication on API endpoints
// ABOUTME: Extracts the bearer token, checks the user still exists, and adds identity to context

package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

// UserLookup reports whether a user id still refers to an account.
type UserLookup interface {
	UserExists(ctx context.Context, userID string) bool
}

// extractBearerToken extracts a bearer token from the Authorization header.
// Returns the token and an error message (empty if successful).
func extractBearerToken(authHeader string) (string, string) {
	if authHeader == "" {
		return "", "Authentication credentials were not provided."
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", "invalid authorization header format"
	}
	token := strings.TrimPrefix(authHeader, "Bearer ")
	if token == "" {
		return "", "empty token"
	}
	return token, ""
}

// writeUnauthorized writes a 401 whose body carries the reason in "detail".
func writeUnauthorized(w http.ResponseWriter, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"detail": detail})
}

// HTTPAuthMiddleware creates an HTTP middleware that requires a valid bearer token
// for an existing user and adds AuthContext to the request context.
func HTTPAuthMiddleware(users UserLookup, verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, errMsg := extractBearerToken(r.Header.Get("Authorization"))
			if errMsg != "" {
				writeUnauthorized(w, errMsg)
				return
			}

			claims, err := verifier.Verify(token)
			if err != nil {
				writeUnauthorized(w, "Given token not valid for any token type")
				return
			}

			if users != nil && !users.UserExists(r.Context(), claims.UserID) {
				writeUnauthorized(w, "User not found")
				return
			}

			authCtx := &AuthContext{UserID: claims.UserID, Email: claims.Email}
			next.ServeHTTP(w, r.WithContext(WithAuth(r.Context(), authCtx)))
		})
	}
}
