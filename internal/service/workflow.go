package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/selfai-labs/selfai/internal/adapter/fallback"
	selfaiotel "github.com/selfai-labs/selfai/internal/adapter/otel"
	"github.com/selfai-labs/selfai/internal/adapter/ws"
	"github.com/selfai-labs/selfai/internal/domain"
	"github.com/selfai-labs/selfai/internal/domain/agent"
	"github.com/selfai-labs/selfai/internal/domain/draft"
	"github.com/selfai-labs/selfai/internal/domain/session"
	"github.com/selfai-labs/selfai/internal/port/broadcast"
	"github.com/selfai-labs/selfai/internal/port/cache"
	"github.com/selfai-labs/selfai/internal/port/generator"
	"github.com/selfai-labs/selfai/internal/port/statestore"
)

// persistTimeout bounds each background snapshot write.
const persistTimeout = 5 * time.Second

// persistQueueSize bounds the backlog of pending snapshot writes.
const persistQueueSize = 16

// Workflow coordinates the agent registry, the draft queue, content
// generation, and persistence. It is the only entry point for mutating
// session state.
type Workflow struct {
	registry *Registry
	queue    *Queue
	remote   generator.Generator
	local    *fallback.Generator
	store    statestore.Store
	hub      broadcast.Broadcaster
	cache    cache.ContentCache
	cacheTTL time.Duration
	metrics  *selfaiotel.Metrics

	// mu serializes compound operations that touch both the registry and
	// the queue, so a removal can never interleave with an enqueue.
	mu sync.Mutex

	identityMu sync.Mutex
	identity   session.Identity

	generating atomic.Bool

	persistOnce sync.Once
	persistCh   chan statestore.Snapshot
}

// NewWorkflow creates the workflow orchestrator. store, hub, cache, and
// metrics are optional; a nil store disables persistence, a nil hub disables
// broadcasting, a nil cache disables generation caching.
func NewWorkflow(registry *Registry, queue *Queue, remote generator.Generator, local *fallback.Generator) *Workflow {
	return &Workflow{
		registry: registry,
		queue:    queue,
		remote:   remote,
		local:    local,
	}
}

// SetStore attaches a snapshot store and rehydrates session state from it.
func (w *Workflow) SetStore(ctx context.Context, store statestore.Store) {
	w.store = store

	snap, err := store.Load(ctx)
	if err != nil {
		slog.Warn("state snapshot load failed, starting empty", "error", err)
		return
	}
	if snap == nil {
		return
	}

	w.registry.Restore(snap.Agents, snap.NextAgentID)
	w.identityMu.Lock()
	w.identity = session.Identity{
		Connected: snap.Connected,
		UserID:    snap.UserID,
		Username:  snap.Username,
	}
	w.identityMu.Unlock()
	slog.Info("session state rehydrated", "agents", len(snap.Agents), "connected", snap.Connected)
}

// SetBroadcaster attaches a real-time event broadcaster.
func (w *Workflow) SetBroadcaster(hub broadcast.Broadcaster) {
	w.hub = hub
}

// SetCache attaches a content cache for remote generation results.
func (w *Workflow) SetCache(c cache.ContentCache, ttl time.Duration) {
	w.cache = c
	w.cacheTTL = ttl
}

// SetMetrics attaches metric instruments.
func (w *Workflow) SetMetrics(m *selfaiotel.Metrics) {
	w.metrics = m
}

// Connect sets the session identity. All three fields change together.
func (w *Workflow) Connect(ctx context.Context, userID int64, username string) error {
	if strings.TrimSpace(username) == "" {
		return fmt.Errorf("username is required: %w", domain.ErrValidation)
	}

	w.identityMu.Lock()
	w.identity = session.Identity{Connected: true, UserID: userID, Username: username}
	w.identityMu.Unlock()

	w.broadcast(ctx, ws.EventSession, ws.SessionEvent{Connected: true, Username: username})
	w.persistAsync()
	return nil
}

// Disconnect clears the identity and all session-scoped state: agents and
// pending drafts do not survive a disconnect.
func (w *Workflow) Disconnect(ctx context.Context) {
	w.identityMu.Lock()
	w.identity = session.Identity{}
	w.identityMu.Unlock()

	w.mu.Lock()
	w.registry.Reset()
	w.queue.Reset()
	w.mu.Unlock()

	w.broadcast(ctx, ws.EventSession, ws.SessionEvent{Connected: false})
	w.persistAsync()
}

// Identity returns the current session identity.
func (w *Workflow) Identity() session.Identity {
	w.identityMu.Lock()
	defer w.identityMu.Unlock()
	return w.identity
}

// IsGenerating reports whether a generation call is in flight.
func (w *Workflow) IsGenerating() bool {
	return w.generating.Load()
}

// AddAgent creates a new agent.
func (w *Workflow) AddAgent(ctx context.Context, req agent.CreateRequest) (*agent.Agent, error) {
	a, err := w.registry.Create(req)
	if err != nil {
		return nil, err
	}

	if w.metrics != nil {
		w.metrics.AgentsCreated.Add(ctx, 1)
	}
	w.broadcast(ctx, ws.EventAgentCreated, ws.AgentEvent{AgentID: a.ID, Name: a.Name})
	w.persistAsync()
	slog.Info("agent created", "agent_id", a.ID, "name", a.Name)
	return a, nil
}

// ListAgents returns all agents in insertion order.
func (w *Workflow) ListAgents() []agent.Agent {
	return w.registry.List()
}

// GetAgent returns a single agent.
func (w *Workflow) GetAgent(id int64) (*agent.Agent, error) {
	return w.registry.Get(id)
}

// RemoveAgent deletes the agent and cascades to every pending draft that
// references it, so no dangling drafts remain.
func (w *Workflow) RemoveAgent(ctx context.Context, id int64) error {
	w.mu.Lock()
	err := w.registry.Remove(id)
	var cascaded int
	if err == nil {
		cascaded = w.queue.RemoveAllForAgent(id)
	}
	w.mu.Unlock()

	if err != nil {
		return err
	}

	w.broadcast(ctx, ws.EventAgentRemoved, ws.AgentEvent{AgentID: id})
	w.persistAsync()
	slog.Info("agent removed", "agent_id", id, "cascaded_drafts", cascaded)
	return nil
}

// PendingDrafts returns the review queue in insertion order.
func (w *Workflow) PendingDrafts() []draft.Draft {
	return w.queue.List()
}

// GeneratePost requests draft content for the agent and queues it for review.
// Returns nil (and no error) when the agent does not exist, or when it was
// removed while generation was in flight. Generation itself never fails: any
// remote error is recovered into locally generated fallback content.
func (w *Workflow) GeneratePost(ctx context.Context, agentID int64, contextHint string) (*draft.Draft, error) {
	a, err := w.registry.Get(agentID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	ctx, span := selfaiotel.StartGenerateSpan(ctx, agentID)
	defer span.End()

	w.generating.Store(true)
	w.broadcast(ctx, ws.EventGenerating, ws.GeneratingEvent{AgentID: agentID, Busy: true})
	// The busy flag is cleared exactly once per attempt, on every exit path.
	defer func() {
		w.generating.Store(false)
		w.broadcast(ctx, ws.EventGenerating, ws.GeneratingEvent{AgentID: agentID, Busy: false})
	}()

	if contextHint == "" {
		contextHint = defaultContext(a)
	}

	start := time.Now()
	content, usedFallback := w.generate(ctx, a, contextHint)
	if w.metrics != nil {
		w.metrics.GenerateTime.Record(ctx, time.Since(start).Seconds())
	}

	// Re-validate under the compound lock: the agent may have been removed
	// while the remote call was in flight, and enqueuing for a removed agent
	// would leave a dangling draft.
	w.mu.Lock()
	if _, err := w.registry.Get(agentID); err != nil {
		w.mu.Unlock()
		slog.Debug("agent removed mid-generation, dropping draft", "agent_id", agentID)
		return nil, nil
	}
	d := w.queue.Enqueue(agentID, content, usedFallback)
	w.mu.Unlock()

	if w.metrics != nil {
		w.metrics.PostsGenerated.Add(ctx, 1)
		if usedFallback {
			w.metrics.FallbacksUsed.Add(ctx, 1)
		}
	}
	w.broadcast(ctx, ws.EventDraftPending, ws.DraftPendingEvent{
		DraftID:  d.ID,
		AgentID:  d.AgentID,
		Content:  d.Content,
		Fallback: d.Fallback,
	})
	slog.Info("draft queued for review", "draft_id", d.ID, "agent_id", agentID, "fallback", usedFallback)
	return d, nil
}

// generate tries the remote backend, then the cache policy, then the local
// fallback. It always returns non-empty content.
func (w *Workflow) generate(ctx context.Context, a *agent.Agent, contextHint string) (content string, usedFallback bool) {
	key := fmt.Sprintf("%d|%s", a.ID, contextHint)

	if w.cache != nil {
		if cached, ok := w.cache.Get(ctx, key); ok && cached != "" {
			return cached, false
		}
	}

	ident := w.Identity()
	remote, err := w.remote.Generate(ctx, generator.Request{
		AgentID: a.ID,
		UserID:  ident.UserID,
		Kind:    generator.KindPost,
		Context: contextHint,
	})
	if err == nil && remote != "" {
		if w.cache != nil {
			w.cache.Set(ctx, key, remote, w.cacheTTL)
		}
		return remote, false
	}

	slog.Debug("remote generation unavailable, using fallback", "agent_id", a.ID, "error", err)
	return w.local.Post(a), true
}

// ApprovePost consumes the draft and increments its agent's lifetime post
// counter. Returns false when the draft id is unknown: a second approval of
// the same draft is a no-op, not an error. If the agent was removed after
// the draft was consumed, the counter increment is skipped silently.
func (w *Workflow) ApprovePost(ctx context.Context, draftID string) bool {
	ctx, span := selfaiotel.StartReviewSpan(ctx, draftID, "approved")
	defer span.End()

	d, ok := w.queue.Approve(draftID)
	if !ok {
		return false
	}

	if err := w.registry.IncrementPosts(d.AgentID); err != nil {
		slog.Debug("agent gone at approval, counter not incremented", "draft_id", draftID, "agent_id", d.AgentID)
	}

	if w.metrics != nil {
		w.metrics.PostsApproved.Add(ctx, 1)
	}
	w.broadcast(ctx, ws.EventDraftClosed, ws.DraftClosedEvent{DraftID: d.ID, AgentID: d.AgentID, Outcome: "approved"})
	w.persistAsync()
	slog.Info("draft approved", "draft_id", draftID, "agent_id", d.AgentID)
	return true
}

// RejectPost discards the draft. Returns false when the id is unknown; same
// idempotency guarantee as ApprovePost.
func (w *Workflow) RejectPost(ctx context.Context, draftID string) bool {
	ctx, span := selfaiotel.StartReviewSpan(ctx, draftID, "rejected")
	defer span.End()

	d, ok := w.queue.Reject(draftID)
	if !ok {
		return false
	}

	if w.metrics != nil {
		w.metrics.PostsRejected.Add(ctx, 1)
	}
	w.broadcast(ctx, ws.EventDraftClosed, ws.DraftClosedEvent{DraftID: d.ID, AgentID: d.AgentID, Outcome: "rejected"})
	slog.Info("draft rejected", "draft_id", draftID, "agent_id", d.AgentID)
	return true
}

// defaultContext builds the generation prompt from the agent's expertise.
func defaultContext(a *agent.Agent) string {
	topics := "trending topics"
	if len(a.Expertise) > 0 {
		topics = strings.Join(a.Expertise, ", ")
	}
	return "Generate a post about " + topics
}

func (w *Workflow) broadcast(ctx context.Context, eventType string, payload any) {
	if w.hub == nil {
		return
	}
	w.hub.BroadcastEvent(ctx, eventType, payload)
}

// persistAsync snapshots identity and agents and hands the snapshot to a
// single writer goroutine, so writes reach the store in mutation order and a
// stale snapshot can never overwrite a newer one. Failures are logged and
// never reach the caller; the in-memory state stays authoritative.
func (w *Workflow) persistAsync() {
	if w.store == nil {
		return
	}
	w.persistOnce.Do(func() {
		w.persistCh = make(chan statestore.Snapshot, persistQueueSize)
		go w.persistLoop()
	})

	agents, nextID := w.registry.Export()
	ident := w.Identity()
	snap := statestore.Snapshot{
		Connected:   ident.Connected,
		UserID:      ident.UserID,
		Username:    ident.Username,
		Agents:      agents,
		NextAgentID: nextID,
	}

	for {
		select {
		case w.persistCh <- snap:
			return
		default:
		}
		// Queue full: evict the oldest pending snapshot. The newest one
		// supersedes it anyway.
		select {
		case <-w.persistCh:
		default:
		}
	}
}

func (w *Workflow) persistLoop() {
	for snap := range w.persistCh {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		if err := w.store.Save(ctx, snap); err != nil {
			slog.Error("state snapshot write failed", "error", err)
		}
		cancel()
	}
}
