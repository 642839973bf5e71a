package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tintworks/tintcore/internal/engine"
	"github.com/tintworks/tintcore/internal/fleet"
)

// groupRequest is the payload for creating or updating a group.
type groupRequest struct {
	ID        string    `json:"id,omitempty"`
	Name      string    `json:"name"`
	MemberIDs *[]string `json:"member_ids,omitempty"`
}

// handleListGroups returns all groups.
func (s *Server) handleListGroups(w http.ResponseWriter, _ *http.Request) {
	groups := s.store.ListGroups()
	writeJSON(w, http.StatusOK, map[string]any{
		"groups": groups,
		"count":  len(groups),
	})
}

// handleGetGroup returns a single group by ID.
func (s *Server) handleGetGroup(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	group, err := s.store.GetGroup(id)
	if err != nil {
		if errors.Is(err, fleet.ErrGroupNotFound) {
			writeNotFound(w, "group not found: "+id)
			return
		}
		writeInternalError(w, "failed to load group")
		return
	}

	writeJSON(w, http.StatusOK, group)
}

// handleCreateGroup creates a new group.
func (s *Server) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	var req groupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	members := []string{}
	if req.MemberIDs != nil {
		members = *req.MemberIDs
	}

	group, err := s.engine.CreateGroup(r.Context(), req.ID, req.Name, members)
	if err != nil {
		s.writeGroupError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, group)
}

// handleUpdateGroup updates a group's name and/or membership. Omitted
// fields keep their current value.
func (s *Server) handleUpdateGroup(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	current, err := s.store.GetGroup(id)
	if err != nil {
		if errors.Is(err, fleet.ErrGroupNotFound) {
			writeNotFound(w, "group not found: "+id)
			return
		}
		writeInternalError(w, "failed to load group")
		return
	}

	var req groupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	name := current.Name
	if req.Name != "" {
		name = req.Name
	}
	members := current.MemberIDs
	if req.MemberIDs != nil {
		members = *req.MemberIDs
	}

	group, err := s.engine.UpdateGroup(r.Context(), id, name, members)
	if err != nil {
		s.writeGroupError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, group)
}

// handleDeleteGroup removes a group.
func (s *Server) handleDeleteGroup(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.engine.DeleteGroup(r.Context(), id); err != nil {
		s.writeGroupError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"deleted": id})
}

// writeGroupError maps group administration errors to HTTP responses.
func (s *Server) writeGroupError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, fleet.ErrGroupNotFound):
		writeNotFound(w, "group not found")
	case errors.Is(err, fleet.ErrGroupExists):
		writeConflict(w, "group id already exists")
	case errors.Is(err, fleet.ErrInvalidName):
		writeBadRequest(w, "group name must not be empty")
	case errors.Is(err, fleet.ErrDuplicateMember):
		writeBadRequest(w, err.Error())
	case errors.Is(err, fleet.ErrUnknownMember):
		writeBadRequest(w, err.Error())
	case errors.Is(err, engine.ErrNotSupported):
		writeError(w, http.StatusBadRequest, ErrCodeNotSupported, "backend does not support group administration")
	default:
		s.logger.Error("group operation failed", "error", err)
		writeInternalError(w, "group operation failed")
	}
}
