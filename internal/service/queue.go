package service

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/selfai-labs/selfai/internal/domain/draft"
)

// Queue holds pending drafts in insertion order until a human approves or
// rejects them. Both outcomes are terminal: the draft leaves the queue and a
// second approve or reject on the same id is a no-op.
type Queue struct {
	mu     sync.Mutex
	drafts []draft.Draft
	newID  func() string
	now    func() time.Time // for testing
}

// NewQueue creates an empty draft queue.
func NewQueue() *Queue {
	return &Queue{
		newID: uuid.NewString,
		now:   time.Now,
	}
}

// Enqueue appends a new pending draft with a fresh id.
func (q *Queue) Enqueue(agentID int64, content string, fallback bool) *draft.Draft {
	q.mu.Lock()
	defer q.mu.Unlock()

	d := draft.Draft{
		ID:        q.newID(),
		AgentID:   agentID,
		Content:   content,
		Fallback:  fallback,
		CreatedAt: q.now().UTC(),
	}
	q.drafts = append(q.drafts, d)
	return &d
}

// Approve removes the draft from the queue and returns it. The second return
// is false when the id is unknown (already approved, rejected, or cascaded),
// which callers treat as an idempotent no-op rather than an error.
func (q *Queue) Approve(id string) (*draft.Draft, bool) {
	return q.take(id)
}

// Reject removes the draft from the queue and discards it. Idempotent.
func (q *Queue) Reject(id string) (*draft.Draft, bool) {
	return q.take(id)
}

func (q *Queue) take(id string) (*draft.Draft, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i := range q.drafts {
		if q.drafts[i].ID == id {
			d := q.drafts[i]
			q.drafts = append(q.drafts[:i], q.drafts[i+1:]...)
			return &d, true
		}
	}
	return nil, false
}

// RemoveAllForAgent deletes every pending draft owned by the given agent,
// preserving the order of the remainder. Returns the number removed.
func (q *Queue) RemoveAllForAgent(agentID int64) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	kept := q.drafts[:0]
	removed := 0
	for i := range q.drafts {
		if q.drafts[i].AgentID == agentID {
			removed++
			continue
		}
		kept = append(kept, q.drafts[i])
	}
	q.drafts = kept
	return removed
}

// List returns all pending drafts in insertion order.
func (q *Queue) List() []draft.Draft {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]draft.Draft, len(q.drafts))
	copy(out, q.drafts)
	return out
}

// Len returns the number of pending drafts.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.drafts)
}

// Reset drops all pending drafts.
func (q *Queue) Reset() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.drafts = nil
}
