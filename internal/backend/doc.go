// Package backend drives physical tint transitions.
//
// Exactly one implementation is selected at startup from
// service.mode: the in-process simulator or the remote vendor
// adapter. The rest of the service talks to the Backend interface and
// never branches on mode.
//
// # Architecture
//
//	Control Engine
//	      │
//	      ▼
//	  Backend ──── Simulator ── DwellGate ── Executor ── fleet.Store
//	      │
//	      └─────── Remote ───── vendor HTTP API ── fleet.Store (mirror)
//
// The simulator owns the full command path locally: the dwell gate
// atomically checks and reserves the per-panel window, then the
// executor commits the level either immediately or after a simulated
// transition delay on a background goroutine. The remote adapter
// forwards each transition to the vendor cloud, which is the authority
// for dwell enforcement in that mode; accepted changes are mirrored
// into the local store so reads and the audit trail stay coherent.
//
// # Capabilities
//
// Group administration is optional. Backends that support it implement
// GroupAdmin; the simulator does, the remote adapter does not (the
// vendor owns grouping). Callers type-assert rather than branching on
// mode.
//
// # Concurrency
//
//   - Dwell check-and-reserve is atomic per panel (per-panel mutex).
//   - Commands on different panels never serialize against each other.
//   - At most one deferred transition is live per panel; a newer
//     accepted command supersedes an older in-flight one.
//
// # Usage
//
//	be := backend.NewSimulator(store, log, backend.SimulatorOptions{
//	    MinDwell:        20 * time.Second,
//	    Strategy:        backend.StrategyDeferred,
//	    TransitionDelay: 3 * time.Second,
//	    Publisher:       broadcaster,
//	})
//	defer be.Close()
//
//	status, err := be.Apply(ctx, "P01", 60)
package backend
