// internal/app/features/guestmode/routes.go
package guestmode

import (
	"github.com/go-chi/chi/v5"
	"github.com/hwankr/courseplanner/internal/app/features/plans"
)

// Routes mounts under /api/guest. Everything but the profile and clearing
// requires a chosen department.
func Routes(h *Handler, planHandler *plans.Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/profile", h.ServeProfile)
	r.Put("/profile", h.HandleSaveProfile)
	r.Delete("/", h.HandleClear)

	r.Group(func(r chi.Router) {
		r.Use(h.Guests.RequireProfile)
		r.Mount("/plans", plans.GuestRoutes(planHandler))

		r.Get("/graduation", h.ServeRequirement)
		r.Put("/graduation", h.HandleSaveRequirement)
		r.Get("/graduation/progress", h.ServeProgress)

		r.Get("/courses", h.ServeCourses)
		r.Post("/courses", h.HandleCreateCourse)
		r.Delete("/courses/{id}", h.HandleDeleteCourse)
	})
	return r
}
