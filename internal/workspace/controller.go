// ABOUTME: Workspace controller owning the ordered set of open agents and their panels
// ABOUTME: Opening mounts a fresh session from the agent's factory; closing discards it

package workspace

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/2389/coven-workspace/internal/agent"
)

// Factory builds the session for one agent.
type Factory func(caller Caller, logger *slog.Logger) Session

// DefaultFactories returns the session factories of the built-in agents.
func DefaultFactories() map[string]Factory {
	return map[string]Factory{
		agent.YouTubeSummarizer: newVideoSummarizer,
		agent.PDFQA:             newDocumentQA,
		agent.ResumeMatcher:     newResumeMatcher,
	}
}

// Options configures a Controller.
type Options struct {
	Registry  *agent.Registry
	Caller    Caller
	Factories map[string]Factory // defaults to DefaultFactories()
	Logger    *slog.Logger
}

// panel is the mounted state of one open agent.
type panel struct {
	session   Session
	minimized bool
}

// Controller owns the open agents in display order.
type Controller struct {
	registry  *agent.Registry
	caller    Caller
	factories map[string]Factory
	logger    *slog.Logger

	mu     sync.Mutex
	order  []string
	panels map[string]*panel
}

// NewController creates an empty workspace.
func NewController(opts Options) *Controller {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	registry := opts.Registry
	if registry == nil {
		registry = agent.Default()
	}
	factories := opts.Factories
	if factories == nil {
		factories = DefaultFactories()
	}

	return &Controller{
		registry:  registry,
		caller:    opts.Caller,
		factories: factories,
		logger:    logger.With("component", "workspace"),
		panels:    make(map[string]*panel),
	}
}

// Registry returns the catalogue the controller opens agents from.
func (c *Controller) Registry() *agent.Registry {
	return c.registry
}

// Open mounts the agent with id and returns its session. Opening an agent
// that is already open returns the existing session.
func (c *Controller) Open(id string) (Session, error) {
	desc, ok := c.registry.Describe(id)
	if !ok || !desc.Available {
		return nil, fmt.Errorf("%w: %s", ErrUnavailableAgent, id)
	}
	factory, ok := c.factories[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s has no session", ErrUnavailableAgent, id)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if p, ok := c.panels[id]; ok {
		return p.session, nil
	}

	session := factory(c.caller, c.logger)
	if session.Kind() != desc.Kind {
		session.close()
		return nil, fmt.Errorf("%w: %s session is %s, catalogue says %s", ErrUnavailableAgent, id, session.Kind(), desc.Kind)
	}
	c.panels[id] = &panel{session: session}
	c.order = append(c.order, id)
	c.logger.Info("agent opened", "agent_id", id, "open", len(c.order))
	return session, nil
}

// Close unmounts id and discards its session, including any response still
// in flight. It reports whether id was open.
func (c *Controller) Close(id string) bool {
	c.mu.Lock()
	p, ok := c.panels[id]
	if !ok {
		c.mu.Unlock()
		return false
	}
	delete(c.panels, id)
	for i, openID := range c.order {
		if openID == id {
			c.order = append(c.order[:i:i], c.order[i+1:]...)
			break
		}
	}
	remaining := len(c.order)
	c.mu.Unlock()

	p.session.close()
	c.logger.Info("agent closed", "agent_id", id, "open", remaining)
	return true
}

// CloseAll unmounts every open agent.
func (c *Controller) CloseAll() {
	c.mu.Lock()
	panels := c.panels
	c.panels = make(map[string]*panel)
	c.order = nil
	c.mu.Unlock()

	for _, p := range panels {
		p.session.close()
	}
	if len(panels) > 0 {
		c.logger.Info("workspace cleared", "closed", len(panels))
	}
}

// List returns the open agent ids in display order.
func (c *Controller) List() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.order...)
}

// Session returns the mounted session for id.
func (c *Controller) Session(id string) (Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.panels[id]
	if !ok {
		return nil, false
	}
	return p.session, true
}

// SetMinimized collapses or expands the panel of an open agent.
func (c *Controller) SetMinimized(id string, minimized bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.panels[id]
	if !ok {
		return false
	}
	p.minimized = minimized
	return true
}

// ToggleMinimized flips the panel state and returns the new value.
func (c *Controller) ToggleMinimized(id string) (bool, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.panels[id]
	if !ok {
		return false, false
	}
	p.minimized = !p.minimized
	return p.minimized, true
}

// Minimized reports whether the panel of id is collapsed.
func (c *Controller) Minimized(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.panels[id]
	return ok && p.minimized
}
