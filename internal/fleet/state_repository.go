package fleet

import (
	"context"
	"database/sql"
	"fmt"
)

// StateRepository defines persistence for panel runtime state: the
// current tint level and the timestamp of the last accepted change.
type StateRepository interface {
	// ListStates returns the persisted state rows keyed by panel ID.
	ListStates(ctx context.Context) (map[string]PanelState, error)

	// GetState returns the state row for one panel.
	// Returns ErrPanelNotFound if no row exists.
	GetState(ctx context.Context, panelID string) (PanelState, error)

	// UpsertState writes level and last_change_ts for a panel,
	// inserting the row if it does not exist.
	UpsertState(ctx context.Context, panelID string, level int, lastChangeTS int64) error

	// SetTimestamp updates only last_change_ts for a panel, inserting
	// a level-zero row if none exists. Used to reserve the dwell
	// window before a transition commits.
	SetTimestamp(ctx context.Context, panelID string, lastChangeTS int64) error

	// SetLevel updates only the level for a panel, leaving the
	// timestamp untouched. Used when a deferred transition commits.
	SetLevel(ctx context.Context, panelID string, level int) error
}

// PanelState is the persisted runtime state of a single panel.
type PanelState struct {
	Level        int
	LastChangeTS int64
}

// SQLiteStateRepository implements StateRepository using SQLite.
type SQLiteStateRepository struct {
	db *sql.DB
}

// NewSQLiteStateRepository creates a new SQLite-backed state repository.
func NewSQLiteStateRepository(db *sql.DB) *SQLiteStateRepository {
	return &SQLiteStateRepository{db: db}
}

// ListStates returns the persisted state rows keyed by panel ID.
func (r *SQLiteStateRepository) ListStates(ctx context.Context) (map[string]PanelState, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT panel_id, level, last_change_ts FROM panel_state",
	)
	if err != nil {
		return nil, fmt.Errorf("querying panel state: %w", err)
	}
	defer rows.Close()

	states := make(map[string]PanelState)
	for rows.Next() {
		var id string
		var s PanelState
		if err := rows.Scan(&id, &s.Level, &s.LastChangeTS); err != nil {
			return nil, fmt.Errorf("scanning panel state: %w", err)
		}
		states[id] = s
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating panel state: %w", err)
	}
	return states, nil
}

// GetState returns the state row for one panel.
func (r *SQLiteStateRepository) GetState(ctx context.Context, panelID string) (PanelState, error) {
	var s PanelState
	err := r.db.QueryRowContext(ctx,
		"SELECT level, last_change_ts FROM panel_state WHERE panel_id = ?",
		panelID,
	).Scan(&s.Level, &s.LastChangeTS)
	if err != nil {
		if errIsNoRows(err) {
			return PanelState{}, ErrPanelNotFound
		}
		return PanelState{}, fmt.Errorf("querying panel state %s: %w", panelID, err)
	}
	return s, nil
}

// UpsertState writes level and last_change_ts for a panel.
func (r *SQLiteStateRepository) UpsertState(ctx context.Context, panelID string, level int, lastChangeTS int64) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO panel_state (panel_id, level, last_change_ts) VALUES (?, ?, ?)
		 ON CONFLICT(panel_id) DO UPDATE SET level = excluded.level, last_change_ts = excluded.last_change_ts`,
		panelID, level, lastChangeTS,
	)
	if err != nil {
		return fmt.Errorf("upserting panel state %s: %w", panelID, err)
	}
	return nil
}

// SetTimestamp updates only last_change_ts for a panel.
func (r *SQLiteStateRepository) SetTimestamp(ctx context.Context, panelID string, lastChangeTS int64) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO panel_state (panel_id, level, last_change_ts) VALUES (?, 0, ?)
		 ON CONFLICT(panel_id) DO UPDATE SET last_change_ts = excluded.last_change_ts`,
		panelID, lastChangeTS,
	)
	if err != nil {
		return fmt.Errorf("reserving panel state %s: %w", panelID, err)
	}
	return nil
}

// SetLevel updates only the level for a panel.
func (r *SQLiteStateRepository) SetLevel(ctx context.Context, panelID string, level int) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO panel_state (panel_id, level, last_change_ts) VALUES (?, ?, 0)
		 ON CONFLICT(panel_id) DO UPDATE SET level = excluded.level`,
		panelID, level,
	)
	if err != nil {
		return fmt.Errorf("updating panel level %s: %w", panelID, err)
	}
	return nil
}
