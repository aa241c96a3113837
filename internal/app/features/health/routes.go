// internal/app/features/health/routes.go
package health

import "github.com/go-chi/chi/v5"

// Routes returns the liveness subrouter, mounted under /health.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.Serve)
	return r
}
