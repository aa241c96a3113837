// internal/app/features/login/routes.go
package login

import "github.com/go-chi/chi/v5"

// Routes returns the email/password sign-in router. Both endpoints are
// public; the POST is protected by the per-IP rate limiter inside the
// handler.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeLogin)
	r.Post("/", h.HandleLoginPost)
	return r
}
