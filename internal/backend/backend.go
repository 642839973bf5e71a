package backend

import (
	"context"
	"fmt"
)

// Backend modes.
const (
	ModeSim  = "sim"
	ModeReal = "real"
)

// Status is the typed outcome of a transition request.
type Status int

const (
	// StatusApplied means the change was accepted and the dwell window
	// was claimed. With a deferred executor the level may still be in
	// flight when Apply returns.
	StatusApplied Status = iota

	// StatusBlocked means the dwell gate refused the change. Not an
	// error: the panel simply changed too recently.
	StatusBlocked
)

// Backend requests tint transitions for individual panels.
type Backend interface {
	// Apply requests that the panel move to the given level. It
	// returns StatusBlocked when the dwell gate refuses, or an error
	// for unknown panels (fleet.ErrPanelNotFound) and hardware or
	// vendor failures (*Error).
	Apply(ctx context.Context, panelID string, level int) (Status, error)

	// Mode identifies the backend ("sim" or "real").
	Mode() string

	// Close releases backend resources and waits for in-flight
	// deferred transitions to settle.
	Close() error
}

// GroupApplier is an optional capability: backends that can drive a
// whole group in one operation implement it, returning the subset of
// member panels that actually took the change. Callers fall back to
// fanning out per-panel Apply calls when it is absent.
type GroupApplier interface {
	ApplyGroup(ctx context.Context, groupID string, level int) ([]string, error)
}

// GroupAdmin is an optional capability: backends that manage group
// definitions implement it. Callers must type-assert and treat its
// absence as "operation not supported".
type GroupAdmin interface {
	CreateGroup(ctx context.Context, id, name string, memberIDs []string) (string, error)
	UpdateGroup(ctx context.Context, id, name string, memberIDs []string) error
	DeleteGroup(ctx context.Context, id string) error
}

// Error wraps a backend failure with the operation that produced it.
type Error struct {
	Op     string // operation, e.g. "apply"
	Status int    // upstream HTTP status when remote, 0 otherwise
	Err    error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("backend: %s failed (status %d): %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("backend: %s failed: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
