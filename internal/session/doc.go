// Package session owns the authentication lifecycle of the workspace client.
//
// A Store moves between four states:
//
//	Anonymous --Login--> Authenticating --ok--> Authenticated
//	Anonymous --Signup--> Authenticating --ok--> AwaitingVerification --Verify--> Authenticated
//	any --Logout or 401--> Anonymous
//
// The credential and user are persisted through a store.SessionStore and
// restored without a network round trip by Restore. The Store implements
// remote.Session, so every request sent by the bound remote.Client carries the
// current credential, and a 401 on any request clears the session before the
// caller sees the error.
package session
