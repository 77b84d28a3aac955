package service

import (
	"errors"
	"testing"

	"github.com/selfai-labs/selfai/internal/domain"
	"github.com/selfai-labs/selfai/internal/domain/agent"
)

func TestRegistryCreateAssignsMonotonicIDs(t *testing.T) {
	r := NewRegistry()

	a1, err := r.Create(agent.CreateRequest{Name: "One"})
	if err != nil {
		t.Fatal(err)
	}
	a2, err := r.Create(agent.CreateRequest{Name: "Two"})
	if err != nil {
		t.Fatal(err)
	}

	if a1.ID >= a2.ID {
		t.Errorf("expected increasing ids, got %d then %d", a1.ID, a2.ID)
	}
	if a1.TotalPosts != 0 {
		t.Errorf("expected zero initial posts, got %d", a1.TotalPosts)
	}
	if a1.CreatedAt.IsZero() {
		t.Error("expected creation timestamp")
	}
}

func TestRegistryCreateEmptyName(t *testing.T) {
	r := NewRegistry()
	_, err := r.Create(agent.CreateRequest{Name: ""})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got: %v", err)
	}
	if len(r.List()) != 0 {
		t.Error("failed create must not append an agent")
	}
}

func TestRegistryListInsertionOrder(t *testing.T) {
	r := NewRegistry()
	names := []string{"a", "b", "c", "d"}
	for _, n := range names {
		if _, err := r.Create(agent.CreateRequest{Name: n}); err != nil {
			t.Fatal(err)
		}
	}

	got := r.List()
	if len(got) != len(names) {
		t.Fatalf("expected %d agents, got %d", len(names), len(got))
	}
	for i, n := range names {
		if got[i].Name != n {
			t.Errorf("position %d: expected %q, got %q", i, n, got[i].Name)
		}
	}
}

func TestRegistryRemovePreservesOrder(t *testing.T) {
	r := NewRegistry()
	var ids []int64
	for _, n := range []string{"a", "b", "c"} {
		a, _ := r.Create(agent.CreateRequest{Name: n})
		ids = append(ids, a.ID)
	}

	if err := r.Remove(ids[1]); err != nil {
		t.Fatal(err)
	}

	got := r.List()
	if len(got) != 2 || got[0].Name != "a" || got[1].Name != "c" {
		t.Errorf("expected [a c], got %+v", got)
	}
}

func TestRegistryRemoveNotFound(t *testing.T) {
	r := NewRegistry()
	err := r.Remove(99)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got: %v", err)
	}
}

func TestRegistryIncrementPosts(t *testing.T) {
	r := NewRegistry()
	a, _ := r.Create(agent.CreateRequest{Name: "Bot"})

	if err := r.IncrementPosts(a.ID); err != nil {
		t.Fatal(err)
	}
	if err := r.IncrementPosts(a.ID); err != nil {
		t.Fatal(err)
	}

	got, err := r.Get(a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.TotalPosts != 2 {
		t.Errorf("expected 2 posts, got %d", got.TotalPosts)
	}
}

func TestRegistryIncrementPostsNotFound(t *testing.T) {
	r := NewRegistry()
	err := r.IncrementPosts(7)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got: %v", err)
	}
}

func TestRegistryIDsNeverReused(t *testing.T) {
	r := NewRegistry()
	a1, _ := r.Create(agent.CreateRequest{Name: "Bot"})
	if err := r.Remove(a1.ID); err != nil {
		t.Fatal(err)
	}

	a2, _ := r.Create(agent.CreateRequest{Name: "Bot2"})
	if a2.ID == a1.ID {
		t.Errorf("id %d was reused", a1.ID)
	}

	r.Reset()
	a3, _ := r.Create(agent.CreateRequest{Name: "Bot3"})
	if a3.ID == a1.ID || a3.ID == a2.ID {
		t.Errorf("id reused after reset: %d", a3.ID)
	}
}

func TestRegistryRestoreBumpsCounterPastAgents(t *testing.T) {
	r := NewRegistry()
	r.Restore([]agent.Agent{{ID: 5, Name: "Old"}}, 2)

	a, err := r.Create(agent.CreateRequest{Name: "New"})
	if err != nil {
		t.Fatal(err)
	}
	if a.ID <= 5 {
		t.Errorf("expected id above restored agents, got %d", a.ID)
	}
}

func TestRegistryGetReturnsCopy(t *testing.T) {
	r := NewRegistry()
	a, _ := r.Create(agent.CreateRequest{Name: "Bot"})

	got, _ := r.Get(a.ID)
	got.TotalPosts = 99

	fresh, _ := r.Get(a.ID)
	if fresh.TotalPosts != 0 {
		t.Error("Get must return a copy, not a live reference")
	}
}
