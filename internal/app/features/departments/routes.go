// internal/app/features/departments/routes.go
package departments

import "github.com/go-chi/chi/v5"

// Routes mounts under /api/departments.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeList)
	r.Get("/{id}", h.ServeDepartment)
	return r
}

// RequirementRoutes mounts under /api/department-requirements.
func RequirementRoutes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeRequirements)
	return r
}
