// internal/app/features/academicevents/routes.go
package academicevents

import "github.com/go-chi/chi/v5"

// Routes mounts under /api/academic-events.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeList)
	return r
}
