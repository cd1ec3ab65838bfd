// Package workspace hosts the agents a user has open side by side.
//
// # Controller
//
// The Controller owns the ordered set of open agent ids. Opening an id mounts
// a new Session built by the agent's Factory; closing it discards the session
// and anything still in flight for it:
//
//	ws := workspace.NewController(workspace.Options{Registry: agent.Default(), Caller: client})
//	s, err := ws.Open(agent.ResumeMatcher)
//
// # Sessions
//
// Sessions are one of three variants:
//
//   - *VideoSummarizer and *ResumeMatcher are single-shot: one request at a
//     time, each success replacing the previous result
//   - *DocumentQA is conversational: each question and answer is appended to
//     a log, and a failed question stays in the log marked failed
//
// Every session allows one outstanding request and rejects a second submit
// with ErrBusy. Errors are returned to the submitting caller and never touch
// other sessions; only a 401, handled by the remote client, has a global
// effect.
package workspace
