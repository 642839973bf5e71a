package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/tintworks/tintcore/internal/audit"
	"github.com/tintworks/tintcore/internal/backend"
	"github.com/tintworks/tintcore/internal/fleet"
	"github.com/tintworks/tintcore/internal/infrastructure/logging"
)

// Engine coordinates commands across the store, the backend and the
// audit log.
type Engine struct {
	store   *fleet.Store
	backend backend.Backend
	audit   audit.Repository
	logger  *logging.Logger
}

// New creates a control engine.
func New(store *fleet.Store, be backend.Backend, auditRepo audit.Repository, logger *logging.Logger) *Engine {
	return &Engine{
		store:   store,
		backend: be,
		audit:   auditRepo,
		logger:  logger.With("component", "engine"),
	}
}

// SetPanel commands a single panel to the given level.
//
// Returns fleet.ErrPanelNotFound for unknown panels and
// fleet.ErrInvalidLevel for out-of-range levels. A dwell block is not
// an error: the result comes back with Accepted false.
func (e *Engine) SetPanel(ctx context.Context, actor, panelID string, level int) (Result, error) {
	if !fleet.ValidLevel(level) {
		return Result{}, fleet.ErrInvalidLevel
	}
	if _, err := e.store.GetPanel(panelID); err != nil {
		return Result{}, err
	}

	status, err := e.backend.Apply(ctx, panelID, level)
	if err != nil {
		// Backend failures are still part of the compliance record:
		// the command was attempted, nothing was applied.
		e.record(ctx, &audit.Entry{
			Actor:      actor,
			TargetType: audit.TargetPanel,
			TargetID:   panelID,
			Level:      level,
			AppliedTo:  []string{},
			Result:     "backend error: " + err.Error(),
		})
		return Result{}, fmt.Errorf("applying panel transition: %w", err)
	}

	result := Result{Accepted: false, AppliedTo: []string{}, Message: MsgDwellNotMet}
	if status == backend.StatusApplied {
		result = Result{Accepted: true, AppliedTo: []string{panelID}, Message: MsgPanelUpdated}
	}

	e.record(ctx, &audit.Entry{
		Actor:      actor,
		TargetType: audit.TargetPanel,
		TargetID:   panelID,
		Level:      level,
		AppliedTo:  result.AppliedTo,
		Result:     result.Message,
	})

	e.logger.Info("panel command",
		"actor", actor,
		"panel_id", panelID,
		"level", level,
		"accepted", result.Accepted,
	)
	return result, nil
}

// SetGroup commands every member of a group to the given level.
//
// Members that no longer exist are skipped, as are members whose dwell
// window is still closed; the result lists the panels that actually
// took the change. One audit entry covers the whole invocation.
func (e *Engine) SetGroup(ctx context.Context, actor, groupID string, level int) (Result, error) {
	if !fleet.ValidLevel(level) {
		return Result{}, fleet.ErrInvalidLevel
	}

	group, err := e.store.GetGroup(groupID)
	if err != nil {
		return Result{}, err
	}

	// Backends that can drive a whole group in one operation get the
	// single call; the vendor returns the applied subset directly.
	if ga, ok := e.backend.(backend.GroupApplier); ok {
		return e.setGroupViaBackend(ctx, ga, actor, groupID, level)
	}

	applied := []string{}
	for _, panelID := range group.MemberIDs {
		status, err := e.backend.Apply(ctx, panelID, level)
		if err != nil {
			if errors.Is(err, fleet.ErrPanelNotFound) {
				// Dangling member: tolerated, the rest of the group
				// still gets the command.
				e.logger.Warn("group member missing, skipping",
					"group_id", groupID,
					"panel_id", panelID,
				)
				continue
			}
			// Backend failure on one member does not abort the fan-out.
			e.logger.Error("group member transition failed",
				"group_id", groupID,
				"panel_id", panelID,
				"error", err,
			)
			continue
		}
		if status == backend.StatusApplied {
			applied = append(applied, panelID)
		}
	}

	result := Result{Accepted: false, AppliedTo: applied, Message: MsgGroupNoPanels}
	if len(applied) > 0 {
		result.Accepted = true
		result.Message = MsgGroupUpdated
	}

	e.record(ctx, &audit.Entry{
		Actor:      actor,
		TargetType: audit.TargetGroup,
		TargetID:   groupID,
		Level:      level,
		AppliedTo:  result.AppliedTo,
		Result:     result.Message,
	})

	e.logger.Info("group command",
		"actor", actor,
		"group_id", groupID,
		"level", level,
		"applied", len(applied),
		"members", len(group.MemberIDs),
	)
	return result, nil
}

// setGroupViaBackend issues one group call and audits the outcome the
// same way the fan-out path does.
func (e *Engine) setGroupViaBackend(ctx context.Context, ga backend.GroupApplier, actor, groupID string, level int) (Result, error) {
	applied, err := ga.ApplyGroup(ctx, groupID, level)
	if err != nil {
		e.record(ctx, &audit.Entry{
			Actor:      actor,
			TargetType: audit.TargetGroup,
			TargetID:   groupID,
			Level:      level,
			AppliedTo:  []string{},
			Result:     "backend error: " + err.Error(),
		})
		return Result{}, fmt.Errorf("applying group transition: %w", err)
	}
	if applied == nil {
		applied = []string{}
	}

	result := Result{Accepted: false, AppliedTo: applied, Message: MsgGroupNoPanels}
	if len(applied) > 0 {
		result.Accepted = true
		result.Message = MsgGroupUpdated
	}

	e.record(ctx, &audit.Entry{
		Actor:      actor,
		TargetType: audit.TargetGroup,
		TargetID:   groupID,
		Level:      level,
		AppliedTo:  result.AppliedTo,
		Result:     result.Message,
	})

	e.logger.Info("group command",
		"actor", actor,
		"group_id", groupID,
		"level", level,
		"applied", len(applied),
	)
	return result, nil
}

// CreateGroup adds a group definition through the backend, which must
// implement group administration. Returns ErrNotSupported otherwise.
func (e *Engine) CreateGroup(ctx context.Context, id, name string, memberIDs []string) (fleet.Group, error) {
	admin, ok := e.backend.(backend.GroupAdmin)
	if !ok {
		return fleet.Group{}, ErrNotSupported
	}

	createdID, err := admin.CreateGroup(ctx, id, name, memberIDs)
	if err != nil {
		return fleet.Group{}, err
	}
	return e.store.GetGroup(createdID)
}

// UpdateGroup rewrites a group definition.
func (e *Engine) UpdateGroup(ctx context.Context, id, name string, memberIDs []string) (fleet.Group, error) {
	admin, ok := e.backend.(backend.GroupAdmin)
	if !ok {
		return fleet.Group{}, ErrNotSupported
	}

	if err := admin.UpdateGroup(ctx, id, name, memberIDs); err != nil {
		return fleet.Group{}, err
	}
	return e.store.GetGroup(id)
}

// DeleteGroup removes a group definition.
func (e *Engine) DeleteGroup(ctx context.Context, id string) error {
	admin, ok := e.backend.(backend.GroupAdmin)
	if !ok {
		return ErrNotSupported
	}
	return admin.DeleteGroup(ctx, id)
}

// record appends an audit entry. Audit failures never fail the
// command; they are logged and the command result stands.
func (e *Engine) record(ctx context.Context, entry *audit.Entry) {
	if err := e.audit.Append(ctx, entry); err != nil {
		e.logger.Error("audit append failed",
			"target_type", entry.TargetType,
			"target_id", entry.TargetID,
			"error", err,
		)
	}
}
