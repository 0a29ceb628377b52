// internal/app/features/cases/routes.go
package cases

import (
	"github.com/dalemusser/casehub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the case-pool endpoints (typically under /api/cases
// from bootstrap). Reading the pool needs a signed-in user; mutating
// it is admin-only.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Get("/", h.ServeList)
		pr.Get("/{id}", h.ServeGet)
	})

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Use(sm.RequireRole("admin"))
		pr.Post("/upload", h.HandleUpload)
		pr.Get("/export", h.ServeExport)
		pr.Post("/reset", h.HandleReset)
	})

	return r
}
