// ABOUTME: Document question-answering session over an uploaded PDF
// ABOUTME: Keeps a conversation log; each question is sent with the full document

package workspace

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/2389/coven-workspace/internal/agent"
	"github.com/2389/coven-workspace/internal/remote"
	"github.com/2389/coven-workspace/internal/validate"
)

// Role identifies who authored a conversation entry.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// EntryStatus tracks a user entry through its request.
type EntryStatus string

const (
	StatusPending   EntryStatus = "pending"
	StatusConfirmed EntryStatus = "confirmed"
	StatusFailed    EntryStatus = "failed"
)

// Entry is one message in a document conversation.
type Entry struct {
	Role   Role
	Text   string
	Status EntryStatus
}

// Document is the PDF a conversation is about.
type Document struct {
	Path  string
	Pages int
}

// Name returns the document's file name.
func (d Document) Name() string { return filepath.Base(d.Path) }

// DocumentQA is the session for agent.PDFQA.
type DocumentQA struct {
	caller Caller
	logger *slog.Logger

	mu       sync.Mutex
	busy     bool
	closed   bool
	document *Document
	log      []Entry
}

func newDocumentQA(caller Caller, logger *slog.Logger) Session {
	return &DocumentQA{
		caller: caller,
		logger: logger.With("agent_id", agent.PDFQA),
	}
}

// AgentID returns agent.PDFQA.
func (d *DocumentQA) AgentID() string { return agent.PDFQA }

// Kind is always agent.KindConversational.
func (d *DocumentQA) Kind() agent.Kind { return agent.KindConversational }

// Busy reports whether a question is in flight.
func (d *DocumentQA) Busy() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.busy
}

// SetDocument selects the PDF later questions are asked about.
// The file is checked locally before it is accepted.
func (d *DocumentQA) SetDocument(path string) (Document, error) {
	pages, err := validate.PDF("pdf_file", path)
	if err != nil {
		return Document{}, err
	}
	doc := Document{Path: path, Pages: pages}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return Document{}, ErrSessionClosed
	}
	d.document = &doc
	return doc, nil
}

// Document returns the selected document.
func (d *DocumentQA) Document() (Document, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.document == nil {
		return Document{}, false
	}
	return *d.document, true
}

// Log returns a copy of the conversation.
func (d *DocumentQA) Log() []Entry {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Entry(nil), d.log...)
}

// Submit asks a question about the selected document. The question is logged
// as pending before the request is sent; it is confirmed and followed by the
// answer on success, or marked failed on error.
func (d *DocumentQA) Submit(ctx context.Context, question string) (Entry, error) {
	question = strings.TrimSpace(question)
	if err := validate.Required("query", question); err != nil {
		return Entry{}, err
	}

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return Entry{}, ErrSessionClosed
	}
	if d.document == nil {
		d.mu.Unlock()
		return Entry{}, &validate.Error{Field: "pdf_file", Message: "is required"}
	}
	if d.busy {
		d.mu.Unlock()
		return Entry{}, ErrBusy
	}
	doc := *d.document
	d.busy = true
	d.log = append(d.log, Entry{Role: RoleUser, Text: question, Status: StatusPending})
	idx := len(d.log) - 1
	d.mu.Unlock()

	form := remote.NewForm().
		FilePath("pdf_file", doc.Path).
		Field("query", question)
	var resp struct {
		Answer string `json:"answer"`
	}
	err := d.caller.SendJSON(ctx, &remote.Request{Path: "/api/ask-from-pdf/", Form: form}, &resp)

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		d.logger.Debug("discarding answer for closed session")
		return Entry{}, ErrSessionClosed
	}
	d.busy = false
	if err != nil {
		d.log[idx].Status = StatusFailed
		d.logger.Warn("question failed", "error", err)
		return Entry{}, err
	}

	d.log[idx].Status = StatusConfirmed
	answer := Entry{Role: RoleAssistant, Text: resp.Answer, Status: StatusConfirmed}
	d.log = append(d.log, answer)
	return answer, nil
}

func (d *DocumentQA) close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	d.busy = false
}
