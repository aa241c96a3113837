// internal/app/features/campaigns/routes.go
package campaigns

import (
	"github.com/dalemusser/planhub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes wires the campaigns feature under its mount point
// (e.g., "/campaigns").
//
// Reading (list, detail) and validation are open to any signed-in user;
// mutations and the governance pipeline endpoints additionally require
// the editor or admin role at the route level, with the permission
// resolver refining per-record decisions inside the handlers.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)

		pr.Get("/", h.ServeList)
		pr.Get("/{id}", h.ServeView)
		pr.Post("/{id}/validate", h.HandleValidate)
	})

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Use(sm.RequireRole("admin", "editor"))

		pr.Get("/new", h.ServeNew)
		pr.Post("/", h.HandleCreate)
		pr.Get("/{id}/edit", h.ServeEdit)
		pr.Post("/{id}/edit", h.HandleEdit)
		pr.Post("/{id}/delete", h.HandleDelete)
		pr.Post("/{id}/submit", h.HandleSubmit)
		pr.Post("/{id}/publish", h.HandlePublish)
		pr.Post("/{id}/export", h.HandleExport)
	})

	return r
}
