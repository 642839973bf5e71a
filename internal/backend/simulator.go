package backend

import (
	"context"
	"time"

	"github.com/tintworks/tintcore/internal/fleet"
	"github.com/tintworks/tintcore/internal/infrastructure/logging"
)

// Simulator is the in-process backend. It enforces the dwell gate
// locally and models physical tinting with the transition executor,
// all against the fleet store. No hardware is involved.
type Simulator struct {
	store    *fleet.Store
	gate     *DwellGate
	executor *Executor
	logger   *logging.Logger
}

// SimulatorOptions configures the simulated backend.
type SimulatorOptions struct {
	MinDwell        time.Duration
	Strategy        string // "immediate" or "deferred"
	TransitionDelay time.Duration
	Publisher       Publisher // may be nil
}

// NewSimulator creates a simulated backend over the fleet store.
func NewSimulator(store *fleet.Store, logger *logging.Logger, opts SimulatorOptions) *Simulator {
	log := logger.With("component", "backend", "mode", ModeSim)
	return &Simulator{
		store:    store,
		gate:     NewDwellGate(store, opts.MinDwell),
		executor: NewExecutor(store, opts.Publisher, log, opts.Strategy, opts.TransitionDelay),
		logger:   log,
	}
}

// Apply requests a tint transition for one panel.
func (s *Simulator) Apply(ctx context.Context, panelID string, level int) (Status, error) {
	if !fleet.ValidLevel(level) {
		return StatusBlocked, fleet.ErrInvalidLevel
	}
	if _, err := s.store.GetPanel(panelID); err != nil {
		return StatusBlocked, err
	}

	ok, _, err := s.gate.CheckAndReserve(ctx, panelID)
	if err != nil {
		return StatusBlocked, &Error{Op: "reserve", Err: err}
	}
	if !ok {
		s.logger.Debug("dwell gate blocked transition", "panel_id", panelID, "level", level)
		return StatusBlocked, nil
	}

	if err := s.executor.Execute(ctx, panelID, level); err != nil {
		// The dwell window stays claimed even though the commit
		// failed; releasing it would let a retry bypass the gate.
		return StatusBlocked, &Error{Op: "apply", Err: err}
	}

	s.logger.Debug("transition accepted", "panel_id", panelID, "level", level)
	return StatusApplied, nil
}

// CreateGroup adds a group definition to the fleet.
func (s *Simulator) CreateGroup(ctx context.Context, id, name string, memberIDs []string) (string, error) {
	g, err := s.store.CreateGroup(ctx, id, name, memberIDs)
	if err != nil {
		return "", err
	}
	return g.ID, nil
}

// UpdateGroup rewrites a group definition.
func (s *Simulator) UpdateGroup(ctx context.Context, id, name string, memberIDs []string) error {
	_, err := s.store.UpdateGroup(ctx, id, name, memberIDs)
	return err
}

// DeleteGroup removes a group definition.
func (s *Simulator) DeleteGroup(ctx context.Context, id string) error {
	return s.store.DeleteGroup(ctx, id)
}

// Mode identifies this backend.
func (s *Simulator) Mode() string {
	return ModeSim
}

// Close drains in-flight deferred transitions.
func (s *Simulator) Close() error {
	s.executor.Close()
	return nil
}
