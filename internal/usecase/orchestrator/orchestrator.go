// Package orchestrator is the facade over the agent registry, selector, and
// workflow engine. It owns lifecycle events, the concurrent-run limit, named
// workflow definitions, and run-history persistence.
package orchestrator

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"maestro-ai/internal/domain"
	"maestro-ai/internal/usecase/registry"
	"maestro-ai/internal/usecase/selector"
	"maestro-ai/internal/usecase/workflow"
)

// Config tunes the orchestrator facade.
type Config struct {
	// MaxRunning caps concurrently executing workflows. Zero means unlimited.
	MaxRunning int
	// DefaultTimeout applies to definitions that declare no timeout.
	DefaultTimeout time.Duration
}

// Orchestrator coordinates agents and workflows behind a single entry point.
type Orchestrator struct {
	cfg      Config
	registry *registry.Registry
	selector *selector.Selector
	engine   *workflow.Engine
	bus      domain.EventBus
	store    domain.RunStore
	logger   *slog.Logger

	running atomic.Int32

	defMu sync.RWMutex
	defs  map[string]domain.WorkflowDefinition
}

// New creates an Orchestrator. bus and store may be nil; a nil logger
// discards output.
func New(cfg Config, reg *registry.Registry, sel *selector.Selector, eng *workflow.Engine, bus domain.EventBus, store domain.RunStore, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Orchestrator{
		cfg:      cfg,
		registry: reg,
		selector: sel,
		engine:   eng,
		bus:      bus,
		store:    store,
		logger:   logger,
		defs:     make(map[string]domain.WorkflowDefinition),
	}
}

// RegisterAgent adds an agent to the registry and announces it on the bus.
func (o *Orchestrator) RegisterAgent(ctx context.Context, a domain.Agent) {
	o.registry.Register(a)
	o.publish(ctx, domain.Event{
		Type:      domain.EventAgentRegistered,
		Timestamp: time.Now(),
		Payload:   mustJSON(map[string]any{"agent_id": a.ID(), "name": a.Name(), "type": a.Type()}),
	})
}

// UnregisterAgent removes an agent from the registry and announces it on the
// bus. Unknown IDs are a no-op.
func (o *Orchestrator) UnregisterAgent(ctx context.Context, agentID string) {
	o.registry.Unregister(agentID)
	o.publish(ctx, domain.Event{
		Type:      domain.EventAgentUnregistered,
		Timestamp: time.Now(),
		Payload:   mustJSON(map[string]any{"agent_id": agentID}),
	})
}

// AssignTask returns the best-scoring registered agent for the task
// description. It does not execute anything. Returns ErrNoCandidate when no
// agent is registered.
func (o *Orchestrator) AssignTask(task string) (domain.Agent, error) {
	return o.selector.SelectBest(task, o.registry.All())
}

// ExecuteWorkflow runs def through the engine. Step-level failures never
// surface as an error; only configuration errors and the concurrent-run
// limit do. Completed runs are persisted when a store is configured.
func (o *Orchestrator) ExecuteWorkflow(ctx context.Context, def domain.WorkflowDefinition) (*domain.WorkflowResult, error) {
	if max := o.cfg.MaxRunning; max > 0 {
		if n := o.running.Add(1); int(n) > max {
			o.running.Add(-1)
			return nil, domain.NewSubSystemError("workflow", "Orchestrator.ExecuteWorkflow",
				domain.ErrLimitReached, def.Name)
		}
	} else {
		o.running.Add(1)
	}
	defer o.running.Add(-1)

	if def.Timeout <= 0 {
		def.Timeout = o.cfg.DefaultTimeout
	}

	o.publish(ctx, domain.Event{
		Type:      domain.EventWorkflowStarted,
		Timestamp: time.Now(),
		Workflow:  def.Name,
		Payload:   mustJSON(map[string]any{"type": def.Type, "steps": len(def.Steps)}),
	})

	res, err := o.engine.Execute(ctx, def)
	if err != nil {
		o.publish(ctx, domain.Event{
			Type:      domain.EventWorkflowFailed,
			Timestamp: time.Now(),
			Workflow:  def.Name,
			Payload:   mustJSON(map[string]any{"error": err.Error()}),
		})
		return nil, err
	}

	eventType := domain.EventWorkflowCompleted
	if !res.Success {
		eventType = domain.EventWorkflowFailed
	}
	o.publish(ctx, domain.Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Workflow:  def.Name,
		Payload:   mustJSON(map[string]any{"run_id": res.RunID, "success": res.Success, "errors": len(res.Errors)}),
	})

	if o.store != nil {
		if err := o.store.SaveRun(ctx, *res); err != nil {
			o.logger.Warn("run persistence failed", "run_id", res.RunID, "error", err)
		}
	}
	return res, nil
}

// LoadDefinitions reads workflow definitions from dir and makes them
// available to RunByName. Later loads replace same-named definitions.
func (o *Orchestrator) LoadDefinitions(dir string) error {
	defs, err := workflow.LoadDefinitions(dir, o.logger)
	if err != nil {
		return err
	}

	o.defMu.Lock()
	for name, def := range defs {
		o.defs[name] = def
	}
	o.defMu.Unlock()
	return nil
}

// AddDefinition registers a single definition after validating it.
func (o *Orchestrator) AddDefinition(def domain.WorkflowDefinition) error {
	if err := workflow.Validate(def); err != nil {
		return err
	}
	o.defMu.Lock()
	o.defs[def.Name] = def
	o.defMu.Unlock()
	return nil
}

// Definitions returns the names of all loaded workflow definitions.
func (o *Orchestrator) Definitions() []string {
	o.defMu.RLock()
	defer o.defMu.RUnlock()
	names := make([]string, 0, len(o.defs))
	for name := range o.defs {
		names = append(names, name)
	}
	return names
}

// RunByName executes a previously loaded definition.
func (o *Orchestrator) RunByName(ctx context.Context, name string) (*domain.WorkflowResult, error) {
	o.defMu.RLock()
	def, ok := o.defs[name]
	o.defMu.RUnlock()
	if !ok {
		return nil, domain.NewSubSystemError("workflow", "Orchestrator.RunByName", domain.ErrNotFound, name)
	}
	return o.ExecuteWorkflow(ctx, def)
}

// Running returns the number of workflows currently executing.
func (o *Orchestrator) Running() int {
	return int(o.running.Load())
}

// publish sends an event on the bus when one is configured. Failures are
// logged, never escalated.
func (o *Orchestrator) publish(ctx context.Context, event domain.Event) {
	if o.bus == nil {
		return
	}
	if err := o.bus.Publish(ctx, event); err != nil {
		o.logger.Warn("event publish failed", "event", string(event.Type), "error", err)
	}
}

func mustJSON(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return data
}
