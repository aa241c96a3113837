// internal/app/features/dashboard/routes.go
package dashboard

import (
	"github.com/dalemusser/planhub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes wires the dashboard feature under whatever mount point
// the top-level router chooses (e.g., "/dashboard").
//
// "/" dispatches to the view for the current user's role. The named
// variants give admins a direct link to each view; the group is
// mixed-access (sign-in only), so each variant handler carries its own
// gate instead of a role middleware.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	// All dashboards require the user to be signed in.
	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		// Final path will be /dashboard when mounted at "/dashboard".
		pr.Get("/", h.ServeDashboard)
		pr.Get("/admin", h.ServeAdmin)
		pr.Get("/editor", h.ServeEditor)
		pr.Get("/reviewer", h.ServeReviewer)
	})

	return r
}
