// Package engine implements the tint control engine, the single entry
// point for panel and group commands.
//
// It resolves targets through the fleet store, drives transitions
// through the active backend, and records exactly one audit entry per
// command invocation, whether the target is one panel or a
// twenty-panel group.
//
// # Command flow
//
//	SetPanel / SetGroup
//	      │ validate level, resolve target
//	      ▼
//	backend.Apply (per panel: dwell gate → transition)
//	      │
//	      ▼
//	Result{Accepted, AppliedTo, Message} + one audit entry
//
// A dwell block is a normal outcome, not an error: the command returns
// Accepted=false with an empty AppliedTo and is still audited. Group
// commands apply the gate independently per member; blocked or
// vanished members are skipped and the result lists the subset that
// took the change.
//
// # State fan-out
//
// Broadcaster implements the backend's Publisher interface and
// forwards committed panel state to registered StateSinks (the
// WebSocket hub, the MQTT publisher, the InfluxDB recorder). For
// deferred transitions the fan-out fires when the commit lands, not at
// accept time.
//
// # Usage
//
//	eng := engine.New(store, be, auditRepo, log)
//	result, err := eng.SetGroup(ctx, actor, "G-facade", 70)
package engine
