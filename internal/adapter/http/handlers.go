package http

import (
	"net/http"

	"github.com/selfai-labs/selfai/internal/domain/agent"
	"github.com/selfai-labs/selfai/internal/domain/draft"
	"github.com/selfai-labs/selfai/internal/service"
)

// Handlers holds the HTTP handler dependencies.
type Handlers struct {
	Workflow *service.Workflow
}

// ---------------------------------------------------------------------------
// Session
// ---------------------------------------------------------------------------

type connectRequest struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
}

type sessionResponse struct {
	Connected bool   `json:"connected"`
	UserID    int64  `json:"user_id,omitempty"`
	Username  string `json:"username,omitempty"`
}

// Connect handles POST /api/v1/session/connect
func (h *Handlers) Connect(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[connectRequest](w, r)
	if !ok {
		return
	}
	if err := h.Workflow.Connect(r.Context(), req.UserID, req.Username); err != nil {
		writeDomainError(w, err, "session not found")
		return
	}
	ident := h.Workflow.Identity()
	writeJSON(w, http.StatusOK, sessionResponse{Connected: true, UserID: ident.UserID, Username: ident.Username})
}

// Disconnect handles POST /api/v1/session/disconnect
func (h *Handlers) Disconnect(w http.ResponseWriter, r *http.Request) {
	h.Workflow.Disconnect(r.Context())
	writeJSON(w, http.StatusOK, sessionResponse{Connected: false})
}

// GetSession handles GET /api/v1/session
func (h *Handlers) GetSession(w http.ResponseWriter, _ *http.Request) {
	ident := h.Workflow.Identity()
	writeJSON(w, http.StatusOK, sessionResponse{
		Connected: ident.Connected,
		UserID:    ident.UserID,
		Username:  ident.Username,
	})
}

// ---------------------------------------------------------------------------
// Agents
// ---------------------------------------------------------------------------

// CreateAgent handles POST /api/v1/agents
func (h *Handlers) CreateAgent(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[agent.CreateRequest](w, r)
	if !ok {
		return
	}
	a, err := h.Workflow.AddAgent(r.Context(), req)
	if err != nil {
		writeDomainError(w, err, "agent not found")
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

// ListAgents handles GET /api/v1/agents
func (h *Handlers) ListAgents(w http.ResponseWriter, _ *http.Request) {
	agents := h.Workflow.ListAgents()
	if agents == nil {
		agents = []agent.Agent{}
	}
	writeJSON(w, http.StatusOK, agents)
}

// GetAgent handles GET /api/v1/agents/{id}
func (h *Handlers) GetAgent(w http.ResponseWriter, r *http.Request) {
	id, ok := agentIDParam(w, r)
	if !ok {
		return
	}
	a, err := h.Workflow.GetAgent(id)
	if err != nil {
		writeDomainError(w, err, "agent not found")
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// DeleteAgent handles DELETE /api/v1/agents/{id}
func (h *Handlers) DeleteAgent(w http.ResponseWriter, r *http.Request) {
	id, ok := agentIDParam(w, r)
	if !ok {
		return
	}
	if err := h.Workflow.RemoveAgent(r.Context(), id); err != nil {
		writeDomainError(w, err, "agent not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---------------------------------------------------------------------------
// Generation and review
// ---------------------------------------------------------------------------

type generateRequest struct {
	Context string `json:"context,omitempty"`
}

// GeneratePost handles POST /api/v1/agents/{id}/generate
func (h *Handlers) GeneratePost(w http.ResponseWriter, r *http.Request) {
	id, ok := agentIDParam(w, r)
	if !ok {
		return
	}
	req, ok := readJSONOptional[generateRequest](w, r)
	if !ok {
		return
	}

	d, err := h.Workflow.GeneratePost(r.Context(), id, req.Context)
	if err != nil {
		writeDomainError(w, err, "agent not found")
		return
	}
	if d == nil {
		writeError(w, http.StatusNotFound, "agent not found")
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

// ListDrafts handles GET /api/v1/drafts
func (h *Handlers) ListDrafts(w http.ResponseWriter, _ *http.Request) {
	drafts := h.Workflow.PendingDrafts()
	if drafts == nil {
		drafts = []draft.Draft{}
	}
	writeJSON(w, http.StatusOK, drafts)
}

type reviewResponse struct {
	DraftID string `json:"draft_id"`
	Outcome string `json:"outcome"`
}

// ApproveDraft handles POST /api/v1/drafts/{id}/approve
func (h *Handlers) ApproveDraft(w http.ResponseWriter, r *http.Request) {
	id := draftIDParam(r)
	if !h.Workflow.ApprovePost(r.Context(), id) {
		writeError(w, http.StatusNotFound, "draft not found")
		return
	}
	writeJSON(w, http.StatusOK, reviewResponse{DraftID: id, Outcome: "approved"})
}

// RejectDraft handles POST /api/v1/drafts/{id}/reject
func (h *Handlers) RejectDraft(w http.ResponseWriter, r *http.Request) {
	id := draftIDParam(r)
	if !h.Workflow.RejectPost(r.Context(), id) {
		writeError(w, http.StatusNotFound, "draft not found")
		return
	}
	writeJSON(w, http.StatusOK, reviewResponse{DraftID: id, Outcome: "rejected"})
}

// Status handles GET /api/v1/status
func (h *Handlers) Status(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"generating":     h.Workflow.IsGenerating(),
		"pending_drafts": len(h.Workflow.PendingDrafts()),
		"agents":         len(h.Workflow.ListAgents()),
	})
}
