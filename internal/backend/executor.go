package backend

import (
	"context"
	"sync"
	"time"

	"github.com/tintworks/tintcore/internal/infrastructure/logging"
)

// Executor strategies.
const (
	StrategyImmediate = "immediate"
	StrategyDeferred  = "deferred"
)

// commitTimeout bounds the background database write when a deferred
// transition lands.
const commitTimeout = 5 * time.Second

// stateCommitter is the slice of the fleet store the executor needs.
type stateCommitter interface {
	CommitLevel(ctx context.Context, panelID string, level int) error
}

// Publisher is notified when a panel's level commit lands. For
// deferred transitions this fires after the delay, not at accept time.
type Publisher interface {
	PanelChanged(panelID string, level int)
}

// Executor commits accepted tint transitions. Immediate strategy
// writes the level before Apply returns; deferred strategy models the
// physical tinting time by committing on a background goroutine after
// a fixed delay.
//
// At most one deferred transition is live per panel: a newer accepted
// command supersedes an older in-flight one, which then abandons its
// commit.
type Executor struct {
	store     stateCommitter
	publisher Publisher
	logger    *logging.Logger
	strategy  string
	delay     time.Duration

	mu  sync.Mutex
	seq map[string]uint64

	wg     sync.WaitGroup
	closed chan struct{}
}

// NewExecutor creates an executor. publisher may be nil.
func NewExecutor(store stateCommitter, publisher Publisher, logger *logging.Logger, strategy string, delay time.Duration) *Executor {
	return &Executor{
		store:     store,
		publisher: publisher,
		logger:    logger,
		strategy:  strategy,
		delay:     delay,
		seq:       make(map[string]uint64),
		closed:    make(chan struct{}),
	}
}

// Execute commits the transition for a panel whose dwell window has
// already been reserved. With the deferred strategy it returns
// immediately and commits later.
func (e *Executor) Execute(ctx context.Context, panelID string, level int) error {
	if e.strategy != StrategyDeferred || e.delay <= 0 {
		if err := e.store.CommitLevel(ctx, panelID, level); err != nil {
			return err
		}
		e.notify(panelID, level)
		return nil
	}

	seq := e.nextSeq(panelID)
	e.wg.Add(1)
	go e.deferCommit(panelID, level, seq)
	return nil
}

// deferCommit waits out the transition delay, then commits unless a
// newer command superseded this one or the executor shut down.
func (e *Executor) deferCommit(panelID string, level int, seq uint64) {
	defer e.wg.Done()

	timer := time.NewTimer(e.delay)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-e.closed:
		e.logger.Debug("deferred transition abandoned on shutdown", "panel_id", panelID)
		return
	}

	if e.currentSeq(panelID) != seq {
		e.logger.Debug("deferred transition superseded", "panel_id", panelID, "level", level)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commitTimeout)
	defer cancel()

	if err := e.store.CommitLevel(ctx, panelID, level); err != nil {
		e.logger.Error("deferred transition commit failed",
			"panel_id", panelID,
			"level", level,
			"error", err,
		)
		return
	}
	e.notify(panelID, level)
}

// Close stops accepting deferred work and waits for running goroutines
// to exit. Pending commits whose delay has not elapsed are abandoned.
func (e *Executor) Close() {
	close(e.closed)
	e.wg.Wait()
}

func (e *Executor) notify(panelID string, level int) {
	if e.publisher != nil {
		e.publisher.PanelChanged(panelID, level)
	}
}

func (e *Executor) nextSeq(panelID string) uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.seq[panelID]++
	return e.seq[panelID]
}

func (e *Executor) currentSeq(panelID string) uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.seq[panelID]
}
