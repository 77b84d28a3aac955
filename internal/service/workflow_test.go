package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/selfai-labs/selfai/internal/adapter/fallback"
	"github.com/selfai-labs/selfai/internal/port/broadcast"
	"github.com/selfai-labs/selfai/internal/port/cache"
	"github.com/selfai-labs/selfai/internal/port/generator"
	"github.com/selfai-labs/selfai/internal/port/statestore"

	"github.com/selfai-labs/selfai/internal/domain/agent"
)

// Ensure mock types implement their interfaces at compile time.
var (
	_ generator.Generator   = (*mockGenerator)(nil)
	_ statestore.Store      = (*mockStore)(nil)
	_ broadcast.Broadcaster = (*mockBroadcaster)(nil)
	_ cache.ContentCache    = (*mockCache)(nil)
)

type mockGenerator struct {
	mu      sync.Mutex
	calls   int
	content string
	err     error
	// onGenerate, when set, runs inside Generate before returning. Used to
	// simulate an agent removal while the remote call is in flight.
	onGenerate func()
}

func (m *mockGenerator) Generate(_ context.Context, _ generator.Request) (string, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.onGenerate != nil {
		m.onGenerate()
	}
	return m.content, m.err
}

func (m *mockGenerator) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type mockStore struct {
	mu    sync.Mutex
	saves []statestore.Snapshot
	load  *statestore.Snapshot
	err   error
	delay time.Duration
}

func (m *mockStore) Load(context.Context) (*statestore.Snapshot, error) {
	return m.load, m.err
}

func (m *mockStore) Save(_ context.Context, snap statestore.Snapshot) error {
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.saves = append(m.saves, snap)
	return nil
}

func (m *mockStore) lastSave() (statestore.Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.saves) == 0 {
		return statestore.Snapshot{}, false
	}
	return m.saves[len(m.saves)-1], true
}

// waitForSaves polls until at least n snapshots were written.
func (m *mockStore) waitForSaves(t *testing.T, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		m.mu.Lock()
		got := len(m.saves)
		m.mu.Unlock()
		if got >= n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d snapshot writes", n)
}

type mockBroadcaster struct {
	mu     sync.Mutex
	events []string
}

func (m *mockBroadcaster) BroadcastEvent(_ context.Context, eventType string, _ any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, eventType)
}

type mockCache struct {
	mu   sync.Mutex
	data map[string]string
}

func newMockCache() *mockCache {
	return &mockCache{data: make(map[string]string)}
}

func (m *mockCache) Get(_ context.Context, key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok
}

func (m *mockCache) Set(_ context.Context, key, content string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = content
}

func newTestWorkflow(gen generator.Generator) *Workflow {
	return NewWorkflow(NewRegistry(), NewQueue(), gen, fallback.New())
}

// --- Workflow tests ---

func TestGenerateApproveIncrementsCounter(t *testing.T) {
	ctx := context.Background()
	w := newTestWorkflow(&mockGenerator{content: "remote content"})

	a, err := w.AddAgent(ctx, agent.CreateRequest{Name: "Bot", Personality: agent.PersonalityWitty, Expertise: []string{"DeFi"}})
	if err != nil {
		t.Fatal(err)
	}

	d, err := w.GeneratePost(ctx, a.ID, "")
	if err != nil {
		t.Fatal(err)
	}
	if d == nil || d.Content != "remote content" {
		t.Fatalf("unexpected draft: %+v", d)
	}

	if !w.ApprovePost(ctx, d.ID) {
		t.Fatal("expected approval to succeed")
	}

	got, _ := w.GetAgent(a.ID)
	if got.TotalPosts != 1 {
		t.Errorf("expected 1 post, got %d", got.TotalPosts)
	}
	if len(w.PendingDrafts()) != 0 {
		t.Error("expected empty queue after approval")
	}
}

func TestGeneratePostUnknownAgent(t *testing.T) {
	w := newTestWorkflow(&mockGenerator{content: "x"})

	d, err := w.GeneratePost(context.Background(), 42, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d != nil {
		t.Fatalf("expected nil draft for unknown agent, got %+v", d)
	}
	if w.IsGenerating() {
		t.Error("busy flag must stay clear for unknown agent")
	}
}

func TestGeneratePostFallbackGuarantee(t *testing.T) {
	ctx := context.Background()
	w := newTestWorkflow(&mockGenerator{err: errors.New("backend down")})

	a, _ := w.AddAgent(ctx, agent.CreateRequest{Name: "Bot", Personality: agent.PersonalityWitty, Expertise: []string{"DeFi"}})

	for range 20 {
		d, err := w.GeneratePost(ctx, a.ID, "")
		if err != nil {
			t.Fatalf("generation must not fail: %v", err)
		}
		if d == nil || d.Content == "" {
			t.Fatal("expected a non-empty fallback draft")
		}
		if !d.Fallback {
			t.Error("expected fallback flag on remote failure")
		}
		if !strings.Contains(d.Content, "DeFi") {
			t.Errorf("expected fallback to mention the expertise tag, got %q", d.Content)
		}
	}
}

func TestBusyFlagReleasedOnAllPaths(t *testing.T) {
	ctx := context.Background()

	// Success path.
	w := newTestWorkflow(&mockGenerator{content: "ok"})
	a, _ := w.AddAgent(ctx, agent.CreateRequest{Name: "Bot"})
	if _, err := w.GeneratePost(ctx, a.ID, ""); err != nil {
		t.Fatal(err)
	}
	if w.IsGenerating() {
		t.Error("busy flag must be clear after success")
	}

	// Failure path (fallback).
	w = newTestWorkflow(&mockGenerator{err: errors.New("down")})
	a, _ = w.AddAgent(ctx, agent.CreateRequest{Name: "Bot"})
	if _, err := w.GeneratePost(ctx, a.ID, ""); err != nil {
		t.Fatal(err)
	}
	if w.IsGenerating() {
		t.Error("busy flag must be clear after fallback")
	}
}

func TestApproveIsIdempotent(t *testing.T) {
	ctx := context.Background()
	w := newTestWorkflow(&mockGenerator{content: "x"})
	a, _ := w.AddAgent(ctx, agent.CreateRequest{Name: "Bot"})
	d, _ := w.GeneratePost(ctx, a.ID, "")

	if !w.ApprovePost(ctx, d.ID) {
		t.Fatal("first approve should succeed")
	}
	if w.ApprovePost(ctx, d.ID) {
		t.Error("second approve must return false")
	}

	got, _ := w.GetAgent(a.ID)
	if got.TotalPosts != 1 {
		t.Errorf("counter must not double-increment, got %d", got.TotalPosts)
	}
}

func TestRejectIsIdempotentAndSkipsCounter(t *testing.T) {
	ctx := context.Background()
	w := newTestWorkflow(&mockGenerator{content: "x"})
	a, _ := w.AddAgent(ctx, agent.CreateRequest{Name: "Bot"})
	d, _ := w.GeneratePost(ctx, a.ID, "")

	if !w.RejectPost(ctx, d.ID) {
		t.Fatal("first reject should succeed")
	}
	if w.RejectPost(ctx, d.ID) {
		t.Error("second reject must return false")
	}

	got, _ := w.GetAgent(a.ID)
	if got.TotalPosts != 0 {
		t.Errorf("reject must not touch the counter, got %d", got.TotalPosts)
	}
}

func TestRemoveAgentCascadesDrafts(t *testing.T) {
	ctx := context.Background()
	w := newTestWorkflow(&mockGenerator{content: "x"})

	a, _ := w.AddAgent(ctx, agent.CreateRequest{Name: "A"})
	b, _ := w.AddAgent(ctx, agent.CreateRequest{Name: "B"})

	d1, _ := w.GeneratePost(ctx, a.ID, "")
	d2, _ := w.GeneratePost(ctx, a.ID, "")
	keep, _ := w.GeneratePost(ctx, b.ID, "")

	if err := w.RemoveAgent(ctx, a.ID); err != nil {
		t.Fatal(err)
	}

	for _, d := range w.PendingDrafts() {
		if d.AgentID == a.ID {
			t.Fatalf("dangling draft %s for removed agent", d.ID)
		}
	}
	if len(w.PendingDrafts()) != 1 || w.PendingDrafts()[0].ID != keep.ID {
		t.Errorf("expected only agent B's draft to remain")
	}

	// Cascaded drafts are terminal: approving them is a no-op.
	if w.ApprovePost(ctx, d1.ID) || w.ApprovePost(ctx, d2.ID) {
		t.Error("approve on cascaded draft must return false")
	}
}

func TestGenerateDropsResultWhenAgentRemovedMidFlight(t *testing.T) {
	ctx := context.Background()
	gen := &mockGenerator{content: "late result"}
	w := newTestWorkflow(gen)

	a, _ := w.AddAgent(ctx, agent.CreateRequest{Name: "Bot"})
	gen.onGenerate = func() {
		if err := w.RemoveAgent(ctx, a.ID); err != nil {
			t.Errorf("remove failed: %v", err)
		}
	}

	d, err := w.GeneratePost(ctx, a.ID, "")
	if err != nil {
		t.Fatal(err)
	}
	if d != nil {
		t.Fatalf("expected result to be dropped, got %+v", d)
	}
	if len(w.PendingDrafts()) != 0 {
		t.Error("no draft may be enqueued for a removed agent")
	}
	if w.IsGenerating() {
		t.Error("busy flag must be clear after a dropped generation")
	}
}

func TestApproveSurvivesAgentRemovalAfterConsume(t *testing.T) {
	// The draft is consumed even when the owning agent vanished between
	// queue removal and counter increment; the increment is skipped.
	ctx := context.Background()
	w := newTestWorkflow(&mockGenerator{content: "x"})
	a, _ := w.AddAgent(ctx, agent.CreateRequest{Name: "Bot"})
	d, _ := w.GeneratePost(ctx, a.ID, "")

	// Remove the agent; the cascade consumes the draft, so re-enqueue one
	// directly to model the race window.
	if err := w.RemoveAgent(ctx, a.ID); err != nil {
		t.Fatal(err)
	}
	orphan := w.queue.Enqueue(a.ID, d.Content, false)

	if !w.ApprovePost(ctx, orphan.ID) {
		t.Fatal("approval itself should succeed")
	}
	if len(w.PendingDrafts()) != 0 {
		t.Error("draft must be consumed")
	}
}

func TestConnectDisconnectLifecycle(t *testing.T) {
	ctx := context.Background()
	w := newTestWorkflow(&mockGenerator{content: "x"})

	if err := w.Connect(ctx, 42, "alice"); err != nil {
		t.Fatal(err)
	}
	ident := w.Identity()
	if !ident.Connected || ident.UserID != 42 || ident.Username != "alice" {
		t.Errorf("identity not set atomically: %+v", ident)
	}

	a, _ := w.AddAgent(ctx, agent.CreateRequest{Name: "Bot"})
	if _, err := w.GeneratePost(ctx, a.ID, ""); err != nil {
		t.Fatal(err)
	}

	w.Disconnect(ctx)

	ident = w.Identity()
	if ident.Connected || ident.UserID != 0 || ident.Username != "" {
		t.Errorf("identity not cleared atomically: %+v", ident)
	}
	if len(w.ListAgents()) != 0 {
		t.Error("disconnect must clear agents")
	}
	if len(w.PendingDrafts()) != 0 {
		t.Error("disconnect must clear pending drafts")
	}
}

func TestConnectRequiresUsername(t *testing.T) {
	w := newTestWorkflow(&mockGenerator{content: "x"})
	if err := w.Connect(context.Background(), 42, "  "); err == nil {
		t.Fatal("expected validation error for blank username")
	}
}

func TestPersistenceExcludesDraftsAndBusyFlag(t *testing.T) {
	ctx := context.Background()
	store := &mockStore{}
	w := newTestWorkflow(&mockGenerator{content: "x"})
	w.SetStore(ctx, store)

	if err := w.Connect(ctx, 42, "alice"); err != nil {
		t.Fatal(err)
	}
	a, _ := w.AddAgent(ctx, agent.CreateRequest{Name: "Bot"})
	if _, err := w.GeneratePost(ctx, a.ID, ""); err != nil {
		t.Fatal(err)
	}

	store.waitForSaves(t, 2)
	snap, ok := store.lastSave()
	if !ok {
		t.Fatal("expected a snapshot")
	}
	if !snap.Connected || snap.Username != "alice" {
		t.Errorf("identity missing from snapshot: %+v", snap)
	}
	if len(snap.Agents) != 1 || snap.Agents[0].Name != "Bot" {
		t.Errorf("agents missing from snapshot: %+v", snap.Agents)
	}
}

func TestPersistenceFailureDoesNotAffectState(t *testing.T) {
	ctx := context.Background()
	store := &mockStore{err: errors.New("disk full")}
	w := newTestWorkflow(&mockGenerator{content: "x"})
	w.store = store // skip Load

	a, err := w.AddAgent(ctx, agent.CreateRequest{Name: "Bot"})
	if err != nil {
		t.Fatalf("persistence failure must not reach the caller: %v", err)
	}
	if got, _ := w.GetAgent(a.ID); got == nil {
		t.Error("in-memory state must survive a failed snapshot write")
	}
}

func TestSnapshotWritesArriveInMutationOrder(t *testing.T) {
	ctx := context.Background()
	store := &mockStore{delay: 10 * time.Millisecond}
	w := newTestWorkflow(&mockGenerator{content: "x"})
	w.store = store // skip Load

	// With a slow store, concurrent writers could land the add-snapshot
	// after the remove-snapshot, persisting an agent that no longer exists.
	a, err := w.AddAgent(ctx, agent.CreateRequest{Name: "Bot"})
	if err != nil {
		t.Fatal(err)
	}
	if err := w.RemoveAgent(ctx, a.ID); err != nil {
		t.Fatal(err)
	}

	store.waitForSaves(t, 2)
	snap, ok := store.lastSave()
	if !ok {
		t.Fatal("expected a snapshot")
	}
	if len(snap.Agents) != 0 {
		t.Errorf("stale snapshot won the race, last write has agents: %+v", snap.Agents)
	}
}

func TestRehydrateFromSnapshot(t *testing.T) {
	ctx := context.Background()
	store := &mockStore{load: &statestore.Snapshot{
		Connected:   true,
		UserID:      7,
		Username:    "bob",
		NextAgentID: 4,
		Agents:      []agent.Agent{{ID: 3, Name: "Old", TotalPosts: 5}},
	}}

	w := newTestWorkflow(&mockGenerator{content: "x"})
	w.SetStore(ctx, store)

	ident := w.Identity()
	if !ident.Connected || ident.Username != "bob" {
		t.Errorf("identity not rehydrated: %+v", ident)
	}
	got, err := w.GetAgent(3)
	if err != nil {
		t.Fatal(err)
	}
	if got.TotalPosts != 5 {
		t.Errorf("expected restored counter 5, got %d", got.TotalPosts)
	}

	a, _ := w.AddAgent(ctx, agent.CreateRequest{Name: "New"})
	if a.ID <= 3 {
		t.Errorf("restored ids must not be reused, got %d", a.ID)
	}
}

func TestGenerationCacheSkipsRemote(t *testing.T) {
	ctx := context.Background()
	gen := &mockGenerator{content: "cached remote"}
	w := newTestWorkflow(gen)
	w.SetCache(newMockCache(), time.Minute)

	a, _ := w.AddAgent(ctx, agent.CreateRequest{Name: "Bot", Expertise: []string{"DeFi"}})

	if _, err := w.GeneratePost(ctx, a.ID, "same prompt"); err != nil {
		t.Fatal(err)
	}
	if _, err := w.GeneratePost(ctx, a.ID, "same prompt"); err != nil {
		t.Fatal(err)
	}

	if gen.callCount() != 1 {
		t.Errorf("expected 1 remote call, got %d", gen.callCount())
	}
}

func TestBroadcastsOnStateChanges(t *testing.T) {
	ctx := context.Background()
	hub := &mockBroadcaster{}
	w := newTestWorkflow(&mockGenerator{content: "x"})
	w.SetBroadcaster(hub)

	a, _ := w.AddAgent(ctx, agent.CreateRequest{Name: "Bot"})
	d, _ := w.GeneratePost(ctx, a.ID, "")
	w.ApprovePost(ctx, d.ID)

	hub.mu.Lock()
	defer hub.mu.Unlock()
	var sawCreated, sawPending, sawClosed bool
	for _, e := range hub.events {
		switch e {
		case "agent.created":
			sawCreated = true
		case "draft.pending":
			sawPending = true
		case "draft.closed":
			sawClosed = true
		}
	}
	if !sawCreated || !sawPending || !sawClosed {
		t.Errorf("missing events, got %v", hub.events)
	}
}
