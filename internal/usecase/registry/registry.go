// Package registry holds the set of registered agents and their declared
// capabilities, with type-based lookup for step matching.
package registry

import (
	"io"
	"log/slog"
	"sort"
	"sync"

	"maestro-ai/internal/domain"
)

type entry struct {
	agent domain.Agent
	// seq is the registration sequence number. It gives AgentsOfType a
	// stable iteration order, which the selector relies on for
	// deterministic tie-breaking (first registered wins).
	seq uint64
}

// Registry is a thread-safe store of registered agents keyed by ID.
type Registry struct {
	mu      sync.RWMutex
	agents  map[string]entry
	nextSeq uint64
	logger  *slog.Logger
}

// New creates an empty Registry. A nil logger discards output.
func New(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Registry{
		agents: make(map[string]entry),
		logger: logger,
	}
}

// Register adds an agent. Registration is idempotent on ID: registering the
// same ID again replaces the previous reference but keeps its original
// registration order.
func (r *Registry) Register(a domain.Agent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := a.ID()
	if prev, ok := r.agents[id]; ok {
		r.agents[id] = entry{agent: a, seq: prev.seq}
		r.logger.Info("agent re-registered", "agent_id", id, "name", a.Name())
		return
	}
	r.nextSeq++
	r.agents[id] = entry{agent: a, seq: r.nextSeq}
	r.logger.Info("agent registered", "agent_id", id, "name", a.Name(), "type", string(a.Type()))
}

// Unregister removes an agent by ID. Removing an unknown ID is a logged
// no-op, not an error.
func (r *Registry) Unregister(agentID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.agents[agentID]; !ok {
		r.logger.Warn("unregister of unknown agent ignored", "agent_id", agentID)
		return
	}
	delete(r.agents, agentID)
	r.logger.Info("agent unregistered", "agent_id", agentID)
}

// Get returns the agent with the given ID, or ErrNotFound.
func (r *Registry) Get(agentID string) (domain.Agent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.agents[agentID]
	if !ok {
		return nil, domain.NewSubSystemError("agent", "Registry.Get", domain.ErrNotFound, agentID)
	}
	return e.agent, nil
}

// AgentsOfType returns all agents with the given type, in registration order.
func (r *Registry) AgentsOfType(t domain.AgentType) []domain.Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := make([]entry, 0, len(r.agents))
	for _, e := range r.agents {
		if e.agent.Type() == t {
			matched = append(matched, e)
		}
	}
	return sortBySeq(matched)
}

// All returns every registered agent, in registration order.
func (r *Registry) All() []domain.Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]entry, 0, len(r.agents))
	for _, e := range r.agents {
		all = append(all, e)
	}
	return sortBySeq(all)
}

// Count returns the number of registered agents.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.agents)
}

func sortBySeq(entries []entry) []domain.Agent {
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].seq < entries[j].seq
	})
	agents := make([]domain.Agent, len(entries))
	for i, e := range entries {
		agents[i] = e.agent
	}
	return agents
}
