// internal/app/features/login/routes.go
package login

import "github.com/go-chi/chi/v5"

// Routes serves /api/auth/register, /api/auth/login and /api/auth/session.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/register", h.HandleRegister)
	r.Post("/login", h.HandleLogin)
	r.Get("/session", h.ServeSession)
	return r
}
