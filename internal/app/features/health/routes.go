// internal/app/features/health/routes.go
package health

import "github.com/go-chi/chi/v5"

// Routes mounts at /health, outside /api so the origin guard and rate
// limits never apply.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.Serve)
	r.Head("/", h.Serve)
	return r
}
