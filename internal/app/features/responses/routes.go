// internal/app/features/responses/routes.go
package responses

import (
	"github.com/dalemusser/casehub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the response endpoints (typically under /api/responses
// from bootstrap).
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Post("/", h.HandleSubmit)
		pr.Get("/me", h.ServeMine)
	})
	return r
}
