// Package statestore defines the port for durable session snapshots.
package statestore

import (
	"context"

	"github.com/selfai-labs/selfai/internal/domain/agent"
)

// Snapshot is the persisted slice of session state. Pending drafts and the
// generation busy flag are deliberately excluded: neither survives a restart.
type Snapshot struct {
	Connected   bool          `json:"connected"`
	UserID      int64         `json:"user_id,omitempty"`
	Username    string        `json:"username,omitempty"`
	Agents      []agent.Agent `json:"agents"`
	NextAgentID int64         `json:"next_agent_id"`
}

// Store persists and rehydrates session snapshots. Save is last-write-wins.
type Store interface {
	Load(ctx context.Context) (*Snapshot, error)
	Save(ctx context.Context, snap Snapshot) error
}
