// Package draft defines the pending post draft entity.
package draft

import "time"

// Draft is a generated post awaiting human approval. It lives only in the
// review queue: approval and rejection are both terminal and remove it.
type Draft struct {
	ID        string    `json:"id"`
	AgentID   int64     `json:"agent_id"`
	Content   string    `json:"content"`
	Fallback  bool      `json:"fallback,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
