package ws

// Event type constants for WebSocket messages.
const (
	EventAgentCreated = "agent.created"
	EventAgentRemoved = "agent.removed"
	EventDraftPending = "draft.pending"
	EventDraftClosed  = "draft.closed"
	EventGenerating   = "generation.status"
	EventSession      = "session.status"
)

// AgentEvent is broadcast when an agent is created or removed.
type AgentEvent struct {
	AgentID int64  `json:"agent_id"`
	Name    string `json:"name,omitempty"`
}

// DraftPendingEvent is broadcast when a new draft enters the review queue.
type DraftPendingEvent struct {
	DraftID  string `json:"draft_id"`
	AgentID  int64  `json:"agent_id"`
	Content  string `json:"content"`
	Fallback bool   `json:"fallback,omitempty"`
}

// DraftClosedEvent is broadcast when a draft reaches a terminal state.
type DraftClosedEvent struct {
	DraftID string `json:"draft_id"`
	AgentID int64  `json:"agent_id"`
	Outcome string `json:"outcome"` // "approved" or "rejected"
}

// GeneratingEvent is broadcast when generation starts or finishes.
type GeneratingEvent struct {
	AgentID int64 `json:"agent_id"`
	Busy    bool  `json:"busy"`
}

// SessionEvent is broadcast on connect and disconnect.
type SessionEvent struct {
	Connected bool   `json:"connected"`
	Username  string `json:"username,omitempty"`
}
