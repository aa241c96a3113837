// internal/app/features/governance/routes.go
package governance

import (
	"github.com/dalemusser/planhub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes wires the governance feature under its mount point
// (e.g., "/governance").
//
// The whole area requires the reviewer or admin role; the permission
// resolver refines decide rights inside the handlers.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Use(sm.RequireRole("admin", "reviewer"))

		pr.Get("/", h.ServeQueue)
		pr.Get("/audit", h.ServeAudit)
		pr.Post("/{id}/decide", h.HandleDecide)
	})

	return r
}
