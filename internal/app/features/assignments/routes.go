// internal/app/features/assignments/routes.go
package assignments

import (
	"github.com/dalemusser/casehub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the assignment endpoints (typically under
// /api/assignments from bootstrap).
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Get("/me", h.ServeMine)
		pr.Post("/topup", h.HandleTopUp)
	})

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Use(sm.RequireRole("admin"))
		pr.Get("/", h.ServeListAll)
		pr.Post("/", h.HandleAssign)
		pr.Post("/rebalance", h.HandleRebalance)
	})

	return r
}
