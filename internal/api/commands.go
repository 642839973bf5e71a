package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/tintworks/tintcore/internal/audit"
	"github.com/tintworks/tintcore/internal/engine"
	"github.com/tintworks/tintcore/internal/fleet"
)

// setLevelRequest is the payload for the set-level command.
type setLevelRequest struct {
	TargetType string `json:"target_type"` // "panel" or "group"
	TargetID   string `json:"target_id"`
	Level      *int   `json:"level"`
}

// handleSetLevel commands a panel or group to a tint level.
//
// 200 carries the result for accepted commands; 429 carries the same
// result shape when the dwell gate blocked everything. 404 means the
// target does not exist.
func (s *Server) handleSetLevel(w http.ResponseWriter, r *http.Request) {
	var req setLevelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.TargetID == "" {
		writeBadRequest(w, "target_id is required")
		return
	}
	if req.Level == nil {
		writeBadRequest(w, "level is required")
		return
	}
	if !fleet.ValidLevel(*req.Level) {
		writeBadRequest(w, "level must be between 0 and 100")
		return
	}

	actor := actorFrom(r.Context())

	var result engine.Result
	var err error
	switch req.TargetType {
	case audit.TargetPanel:
		result, err = s.engine.SetPanel(r.Context(), actor, req.TargetID, *req.Level)
	case audit.TargetGroup:
		result, err = s.engine.SetGroup(r.Context(), actor, req.TargetID, *req.Level)
	default:
		writeBadRequest(w, "target_type must be 'panel' or 'group'")
		return
	}

	if err != nil {
		switch {
		case errors.Is(err, fleet.ErrPanelNotFound):
			writeNotFound(w, "panel not found: "+req.TargetID)
		case errors.Is(err, fleet.ErrGroupNotFound):
			writeNotFound(w, "group not found: "+req.TargetID)
		case errors.Is(err, fleet.ErrInvalidLevel):
			writeBadRequest(w, "level must be between 0 and 100")
		default:
			s.logger.Error("set-level command failed",
				"target_type", req.TargetType,
				"target_id", req.TargetID,
				"error", err,
			)
			writeInternalError(w, "command failed; the physical transition may already have started")
		}
		return
	}

	status := http.StatusOK
	if !result.Accepted {
		status = http.StatusTooManyRequests
	}
	writeJSON(w, status, result)
}
