// internal/app/features/admin/routes.go
package admin

import "github.com/go-chi/chi/v5"

// Routes mounts under /api/admin behind RequireRole(admin).
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	r.Route("/users", func(r chi.Router) {
		r.Get("/", h.ServeUsers)
		r.Patch("/{id}/role", h.HandleSetRole)
		r.Delete("/{id}", h.HandleDeleteUser)
	})

	r.Route("/courses", func(r chi.Router) {
		r.Get("/", h.ServeCourses)
		r.Post("/", h.HandleCreateCourse)
		r.Put("/{id}", h.HandleUpdateCourse)
		r.Delete("/{id}", h.HandleDeleteCourse)
	})

	r.Route("/departments", func(r chi.Router) {
		r.Get("/", h.ServeDepartments)
		r.Post("/", h.HandleCreateDepartment)
		r.Put("/{id}", h.HandleUpdateDepartment)
		r.Delete("/{id}", h.HandleDeleteDepartment)
	})

	r.Route("/department-requirements", func(r chi.Router) {
		r.Get("/", h.ServeDeptReqs)
		r.Post("/", h.HandleCreateDeptReq)
		r.Put("/{id}", h.HandleUpdateDeptReq)
		r.Delete("/{id}", h.HandleDeleteDeptReq)
	})

	r.Route("/feedback", func(r chi.Router) {
		r.Get("/", h.ServeFeedback)
		r.Patch("/{id}", h.HandleUpdateFeedback)
	})

	r.Route("/patch-notes", func(r chi.Router) {
		r.Get("/", h.ServePatchNotes)
		r.Post("/", h.HandleCreatePatchNote)
		r.Put("/{id}", h.HandleUpdatePatchNote)
		r.Patch("/{id}/publish", h.HandlePublish)
		r.Delete("/{id}", h.HandleDeletePatchNote)
	})

	r.Route("/academic-events", func(r chi.Router) {
		r.Get("/", h.ServeEvents)
		r.Post("/", h.HandleCreateEvent)
		r.Put("/{id}", h.HandleUpdateEvent)
		r.Delete("/{id}", h.HandleDeleteEvent)
	})

	r.Get("/stats/overview", h.ServeOverview)
	r.Get("/audit", h.ServeAudit)
	return r
}
