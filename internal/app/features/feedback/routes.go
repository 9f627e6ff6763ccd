// internal/app/features/feedback/routes.go
package feedback

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Routes mounts under /api/feedback behind RequireSignedIn. limit throttles
// submissions.
func Routes(h *Handler, limit func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.With(limit).Post("/", h.HandleSubmit)
	r.Get("/mine", h.ServeMine)
	return r
}
