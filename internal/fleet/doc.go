// Package fleet provides the Entity Store for Tint Core.
//
// The Entity Store is the catalogue of all tintable panels and the
// groups that address them together. It merges two persisted halves
// into one in-memory view: structural configuration (panel identity,
// group membership) and runtime state (current tint level, last-change
// timestamp).
//
// # Architecture
//
//	┌──────────────────────────────────────────────────────────────┐
//	│                          Fleet Store                         │
//	│                                                              │
//	│  ┌───────────────┐  ┌────────────────────┐  ┌─────────────┐  │
//	│  │     Store     │  │  ConfigRepository  │  │   State     │  │
//	│  │  (store.go)   │─▶│(config_repository) │  │ Repository  │  │
//	│  │               │  │                    │  │             │  │
//	│  │ • cached view │  │ • panel_config     │  │ • panel_    │  │
//	│  │ • group CRUD  │  │ • groups           │  │   state     │  │
//	│  │ • state commit│  └────────────────────┘  └─────────────┘  │
//	│  └───────────────┘                                           │
//	└──────────────────────────────────────────────────────────────┘
//
// # Key Types
//
//   - Panel: a single electrochromic panel with level and dwell timestamp
//   - Group: a named, duplicate-free set of panel ids
//   - Snapshot: the composite read view served to the API and WebSocket hub
//
// # Usage
//
//	store := fleet.NewStore(
//	    fleet.NewSQLiteConfigRepository(db),
//	    fleet.NewSQLiteStateRepository(db),
//	    log,
//	)
//	if err := store.Bootstrap(ctx); err != nil {
//	    return err
//	}
//	if err := store.Load(ctx); err != nil {
//	    return err
//	}
//
// All Store reads come from the cache; every write goes to SQLite first
// and mutates the cache only after the database accepts it. Timestamp
// reservation (ReserveTimestamp) and level commit (CommitLevel) are
// split on purpose so a deferred transition can claim its dwell window
// before the physical change lands.
package fleet
