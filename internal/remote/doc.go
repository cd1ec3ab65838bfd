// Package remote wraps outbound calls to the agent service.
//
// # Credential Injection
//
// The client reads the bearer credential from a bound Session on every
// request; it never stores the credential itself:
//
//	client := remote.New(remote.Options{BaseURL: cfg.Remote.BaseURL, Timeout: cfg.Remote.Timeout})
//	client.Bind(sessionStore)
//
// # Invalidation
//
// A 401 response calls Session.Invalidate with the credential that was sent,
// synchronously, before the *ServiceError is returned. The session decides
// whether that credential is still current.
//
// # Bodies
//
// Request.JSON sends application/json; Request.Form sends multipart/form-data
// with files and fields:
//
//	form := remote.NewForm().FilePath("pdf_file", path).Field("query", q)
//	body, err := client.Send(ctx, &remote.Request{Path: "/api/ask-from-pdf/", Form: form})
//
// # Errors
//
//   - *NetworkError: no response (transport failure, or Timeout() when the
//     per-request limit expired)
//   - *ServiceError: non-2xx status with the raw body; Message() extracts the
//     service's failure reason
package remote
