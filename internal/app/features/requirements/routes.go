// internal/app/features/requirements/routes.go
package requirements

import (
	"github.com/go-chi/chi/v5"
	"github.com/hwankr/courseplanner/internal/app/system/onboarding"
)

// Routes mounts under /api/graduation-requirements behind RequireSignedIn.
// Defaults stay reachable during onboarding, which pre-fills from them.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/defaults", h.ServeDefaults)
	r.Group(func(r chi.Router) {
		r.Use(onboarding.Require)
		r.Get("/", h.ServeRequirement)
		r.Put("/", h.HandleUpsert)
		r.Get("/progress", h.ServeProgress)
	})
	return r
}
