package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Health check (no auth required)
		r.Get("/health", s.handleHealth)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			// Panel catalogue
			r.Route("/panels", func(r chi.Router) {
				r.Get("/", s.handleListPanels)
				r.Get("/{id}", s.handleGetPanel)
			})

			// Group catalogue and administration
			r.Route("/groups", func(r chi.Router) {
				r.Get("/", s.handleListGroups)
				r.Post("/", s.handleCreateGroup)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", s.handleGetGroup)
					r.Patch("/", s.handleUpdateGroup)
					r.Delete("/", s.handleDeleteGroup)
				})
			})

			// Control commands
			r.Post("/commands/set-level", s.handleSetLevel)

			// Audit trail
			r.Route("/audit", func(r chi.Router) {
				r.Get("/", s.handleListAudit)
				r.Get("/export", s.handleExportAudit)
			})

			// WebSocket state stream
			r.Get("/ws", s.handleWebSocket)
		})
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"mode":    s.mode,
		"version": s.version,
	})
}
