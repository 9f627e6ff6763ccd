// internal/app/features/plans/routes.go
package plans

import "github.com/go-chi/chi/v5"

// Routes mounts under /api/plans for signed-in, onboarded users.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServePlan)
	r.Route("/{id}", func(r chi.Router) {
		Mount(r, h)
	})
	return r
}

// GuestRoutes mounts under /api/guest/plans.
func GuestRoutes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServePlan)
	Mount(r, h)
	return r
}

// Mount registers the plan operations on r.
func Mount(r chi.Router, h *Handler) {
	r.Post("/reset", h.HandleReset)
	r.Post("/semesters", h.HandleAddSemester)
	r.Delete("/semesters", h.HandleRemoveSemester)
	r.Post("/courses", h.HandleAddCourse)
	r.Delete("/courses", h.HandleRemoveCourse)
	r.Patch("/courses/move", h.HandleMoveCourse)
	r.Patch("/courses/status", h.HandleUpdateStatus)
}
