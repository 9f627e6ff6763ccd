// internal/app/features/patchnotes/routes.go
package patchnotes

import "github.com/go-chi/chi/v5"

// Routes mounts under /api/patch-notes behind RequireSignedIn.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeList)
	r.Post("/read-all", h.HandleReadAll)
	r.Post("/{id}/read", h.HandleRead)
	return r
}
