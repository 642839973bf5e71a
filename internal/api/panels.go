package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tintworks/tintcore/internal/fleet"
)

// handleListPanels returns all panels with their current state.
func (s *Server) handleListPanels(w http.ResponseWriter, _ *http.Request) {
	panels := s.store.ListPanels()
	writeJSON(w, http.StatusOK, map[string]any{
		"panels": panels,
		"count":  len(panels),
	})
}

// handleGetPanel returns a single panel by ID.
func (s *Server) handleGetPanel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	panel, err := s.store.GetPanel(id)
	if err != nil {
		if errors.Is(err, fleet.ErrPanelNotFound) {
			writeNotFound(w, "panel not found: "+id)
			return
		}
		writeInternalError(w, "failed to load panel")
		return
	}

	writeJSON(w, http.StatusOK, panel)
}
