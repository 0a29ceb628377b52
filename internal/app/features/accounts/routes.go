// internal/app/features/accounts/routes.go
package accounts

import (
	"github.com/dalemusser/casehub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// AuthRoutes mounts the unauthenticated signup/login/logout endpoints
// (typically under /api/auth from bootstrap).
func AuthRoutes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/signup", h.HandleSignup)
	r.Post("/login", h.HandleLogin)
	r.Post("/logout", h.HandleLogout)
	return r
}

// UserRoutes mounts the signed-in profile endpoints (typically under
// /api/users from bootstrap).
func UserRoutes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Get("/me", h.ServeMe)
		pr.Put("/me", h.HandleUpdateMe)
	})
	return r
}
