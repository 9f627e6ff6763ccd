// internal/app/features/profile/routes.go
package profile

import (
	"github.com/go-chi/chi/v5"
	"github.com/hwankr/courseplanner/internal/app/system/onboarding"
)

// Routes mounts under /api/users/me behind RequireSignedIn.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeMe)
	r.Patch("/", h.HandleUpdate)
	r.Delete("/", h.HandleDelete)
	r.Put("/password", h.HandleChangePassword)
	r.With(onboarding.RequireIncomplete).Post("/onboarding", h.HandleOnboarding)
	return r
}
