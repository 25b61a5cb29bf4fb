package orchestrator

import (
	"fmt"
	"sync/atomic"

	"github.com/quillworks/quill/internal/decompose"
	"github.com/quillworks/quill/internal/provider"
	"github.com/quillworks/quill/internal/store"
	"github.com/quillworks/quill/pkg/models"
)

// DefaultEventBuffer is the event channel capacity used when Config
// enables events without choosing a size.
const DefaultEventBuffer = 64

// Config contains the collaborators and settings for an Orchestrator.
type Config struct {
	// Provider generates text for decomposition and model-driven tasks.
	// Required.
	Provider provider.Provider

	// Store persists workflows after every status change. Required.
	Store *store.Store

	// Tokens tracks provider token usage. If nil, events carry no token
	// totals.
	Tokens *provider.TokenTracker

	// EventBuffer is the progress event channel capacity. Zero disables
	// events entirely; negative values select DefaultEventBuffer.
	EventBuffer int
}

// Orchestrator executes workflows one task at a time, dispatching each
// task to the handler registered for its kind and persisting the workflow
// around every transition.
//
// Register all handlers and policies before the first execution call;
// the registries are not synchronized.
type Orchestrator struct {
	provider   provider.Provider
	store      *store.Store
	tokens     *provider.TokenTracker
	decomposer *decompose.Decomposer

	handlers map[models.TaskKind]registration
	policies map[string]Policy

	events  chan Event
	dropped atomic.Uint64
}

// New creates an orchestrator from cfg. The generic task kind is
// pre-registered; domain policies add their own handlers on top.
func New(cfg Config) *Orchestrator {
	o := &Orchestrator{
		provider: cfg.Provider,
		store:    cfg.Store,
		tokens:   cfg.Tokens,
		handlers: make(map[models.TaskKind]registration),
		policies: make(map[string]Policy),
	}
	o.decomposer = decompose.New(cfg.Provider)
	switch {
	case cfg.EventBuffer > 0:
		o.events = make(chan Event, cfg.EventBuffer)
	case cfg.EventBuffer < 0:
		o.events = make(chan Event, DefaultEventBuffer)
	}
	o.Register(models.KindGenerate, HandlerFunc(o.generateHandler))
	return o
}

// Register binds a handler to a task kind, replacing any previous binding.
func (o *Orchestrator) Register(kind models.TaskKind, h Handler) {
	o.RegisterKeyed(kind, "", h)
}

// RegisterKeyed binds a handler to a task kind and names the workflow
// context key that receives the task output when the task completes.
func (o *Orchestrator) RegisterKeyed(kind models.TaskKind, contextKey string, h Handler) {
	o.handlers[kind] = registration{handler: h, contextKey: contextKey}
}

// RegisterPolicy adds a domain policy used by CreateWorkflow to bypass
// model-driven decomposition.
func (o *Orchestrator) RegisterPolicy(p Policy) {
	o.policies[p.Domain()] = p
}

// save persists the workflow, wrapping failures with workflow identity.
func (o *Orchestrator) save(wf *models.Workflow) error {
	if err := o.store.Save(wf); err != nil {
		return fmt.Errorf("workflow %s: %w", wf.ID, err)
	}
	return nil
}
