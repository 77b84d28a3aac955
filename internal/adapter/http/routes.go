package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// MountRoutes registers all API routes on the given chi router.
func MountRoutes(r chi.Router, h *Handlers) {
	r.Route("/api/v1", func(r chi.Router) {
		// Version
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"version":"0.1.0"}`))
		})

		// Session
		r.Get("/session", h.GetSession)
		r.Post("/session/connect", h.Connect)
		r.Post("/session/disconnect", h.Disconnect)

		// Agents
		r.Get("/agents", h.ListAgents)
		r.Post("/agents", h.CreateAgent)
		r.Get("/agents/{id}", h.GetAgent)
		r.Delete("/agents/{id}", h.DeleteAgent)
		r.Post("/agents/{id}/generate", h.GeneratePost)

		// Draft review
		r.Get("/drafts", h.ListDrafts)
		r.Post("/drafts/{id}/approve", h.ApproveDraft)
		r.Post("/drafts/{id}/reject", h.RejectDraft)

		// Workflow status
		r.Get("/status", h.Status)
	})
}
