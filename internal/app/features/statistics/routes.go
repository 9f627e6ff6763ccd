// internal/app/features/statistics/routes.go
package statistics

import (
	"github.com/go-chi/chi/v5"
	"github.com/hwankr/courseplanner/internal/app/system/onboarding"
)

// Routes mounts under /api/statistics behind RequireSignedIn.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(onboarding.Require)
	r.Get("/department", h.ServeDepartment)
	r.Get("/courses/{id}", h.ServeCourse)
	return r
}
