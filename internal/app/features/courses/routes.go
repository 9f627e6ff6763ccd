// internal/app/features/courses/routes.go
package courses

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Routes mounts under /api/courses. Reads are public; writes go through
// requireUser (RequireSignedIn).
func Routes(h *Handler, requireUser func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeList)
	r.Get("/{id}", h.ServeCourse)
	r.Group(func(r chi.Router) {
		r.Use(requireUser)
		r.Post("/", h.HandleCreate)
		r.Put("/{id}", h.HandleUpdate)
		r.Delete("/{id}", h.HandleDelete)
	})
	return r
}
