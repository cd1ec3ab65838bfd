// Package auth issues and checks the bearer tokens of the development service.
//
// # Tokens
//
// Tokens are HS256 JWTs whose "sub" claim is the user id:
//
//	verifier, err := auth.NewJWTVerifier([]byte(cfg.DevServer.JWTSecret))
//	token, err := verifier.Generate(user.ID, user.Email, cfg.DevServer.TokenTTL)
//
// # HTTP Middleware
//
// HTTPAuthMiddleware rejects requests without a valid token for an existing
// user with 401 and a {"detail": ...} body, and attaches an AuthContext
// otherwise:
//
//	r.With(auth.HTTPAuthMiddleware(users, verifier)).Post("/api/summarize-youtube/", h)
//	who := auth.FromContext(r.Context())
package auth
