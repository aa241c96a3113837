// internal/app/features/profile/routes.go
package profile

import (
	"github.com/dalemusser/planhub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes wires the self-service account page under its mount point
// (e.g., "/profile"). Any signed-in user may manage their own account.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)

		pr.Get("/", h.ServeProfile)
		pr.Post("/wrike", h.HandleUpdateWrike)
		pr.Post("/password", h.HandleChangePassword)
	})

	return r
}
