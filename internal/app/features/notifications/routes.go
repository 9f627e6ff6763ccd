// internal/app/features/notifications/routes.go
package notifications

import "github.com/go-chi/chi/v5"

// Routes mounts under /api/notifications behind RequireSignedIn.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeList)
	r.Post("/read", h.HandleRead)
	r.Post("/read-all", h.HandleReadAll)
	return r
}
