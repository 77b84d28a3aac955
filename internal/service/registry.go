package service

import (
	"fmt"
	"sync"
	"time"

	"github.com/selfai-labs/selfai/internal/domain"
	"github.com/selfai-labs/selfai/internal/domain/agent"
)

// Registry owns the session's agents. Agents are kept in insertion order and
// ids are assigned from a monotonic counter that is never reused.
type Registry struct {
	mu     sync.Mutex
	agents []agent.Agent
	nextID int64
	now    func() time.Time // for testing
}

// NewRegistry creates an empty agent registry.
func NewRegistry() *Registry {
	return &Registry{
		nextID: 1,
		now:    time.Now,
	}
}

// Create validates the request and appends a new agent with TotalPosts zero.
func (r *Registry) Create(req agent.CreateRequest) (*agent.Agent, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	a := agent.Agent{
		ID:          r.nextID,
		Name:        req.Name,
		Personality: req.Personality,
		Expertise:   req.Expertise,
		CreatedAt:   r.now().UTC(),
	}
	r.nextID++
	r.agents = append(r.agents, a)
	return &a, nil
}

// Get returns the agent with the given id.
func (r *Registry) Get(id int64) (*agent.Agent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.agents {
		if r.agents[i].ID == id {
			a := r.agents[i]
			return &a, nil
		}
	}
	return nil, fmt.Errorf("get agent %d: %w", id, domain.ErrNotFound)
}

// List returns all agents in insertion order.
func (r *Registry) List() []agent.Agent {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]agent.Agent, len(r.agents))
	copy(out, r.agents)
	return out
}

// Remove deletes the agent with the given id, preserving the order of the
// remainder. The caller cascades pending draft removal.
func (r *Registry) Remove(id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.agents {
		if r.agents[i].ID == id {
			r.agents = append(r.agents[:i], r.agents[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("remove agent %d: %w", id, domain.ErrNotFound)
}

// IncrementPosts bumps the agent's lifetime post counter. Returns ErrNotFound
// if the agent was removed in the interim; the caller treats that as a no-op.
func (r *Registry) IncrementPosts(id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.agents {
		if r.agents[i].ID == id {
			r.agents[i].TotalPosts++
			return nil
		}
	}
	return fmt.Errorf("increment posts %d: %w", id, domain.ErrNotFound)
}

// Reset drops all agents. The id counter is not reset, so ids from the old
// session are never handed out again within this process.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.agents = nil
}

// Export returns the agents and the id counter for persistence.
func (r *Registry) Export() (agents []agent.Agent, nextID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]agent.Agent, len(r.agents))
	copy(out, r.agents)
	return out, r.nextID
}

// Restore rehydrates the registry from a snapshot. The id counter is bumped
// past every restored agent so ids are never reused across restarts.
func (r *Registry) Restore(agents []agent.Agent, nextID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.agents = make([]agent.Agent, len(agents))
	copy(r.agents, agents)

	r.nextID = nextID
	for i := range r.agents {
		if r.agents[i].ID >= r.nextID {
			r.nextID = r.agents[i].ID + 1
		}
	}
	if r.nextID < 1 {
		r.nextID = 1
	}
}
