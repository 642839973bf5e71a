package fleet

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ConfigRepository defines persistence for structural configuration:
// panel identity and group membership. Runtime state lives in
// StateRepository.
type ConfigRepository interface {
	// ListPanels returns all configured panels (identity fields only;
	// Level and LastChangeTS are zero).
	ListPanels(ctx context.Context) ([]Panel, error)

	// ListGroups returns all configured groups.
	ListGroups(ctx context.Context) ([]Group, error)

	// ReplacePanels replaces the whole panel configuration set.
	// Used by bootstrap and legacy import only.
	ReplacePanels(ctx context.Context, panels []Panel) error

	// CreateGroup inserts a new group.
	// Returns ErrGroupExists if the ID is already taken.
	CreateGroup(ctx context.Context, group Group) error

	// UpdateGroup rewrites a group's name and membership.
	// Returns ErrGroupNotFound if the group does not exist.
	UpdateGroup(ctx context.Context, group Group) error

	// DeleteGroup removes a group by ID.
	// Returns ErrGroupNotFound if the group does not exist.
	DeleteGroup(ctx context.Context, id string) error
}

// SQLiteConfigRepository implements ConfigRepository using SQLite.
type SQLiteConfigRepository struct {
	db *sql.DB
}

// NewSQLiteConfigRepository creates a new SQLite-backed config repository.
func NewSQLiteConfigRepository(db *sql.DB) *SQLiteConfigRepository {
	return &SQLiteConfigRepository{db: db}
}

// ListPanels returns all configured panels ordered by id.
func (r *SQLiteConfigRepository) ListPanels(ctx context.Context) ([]Panel, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, name, group_id FROM panel_config ORDER BY id",
	)
	if err != nil {
		return nil, fmt.Errorf("querying panel config: %w", err)
	}
	defer rows.Close()

	var panels []Panel
	for rows.Next() {
		var p Panel
		var groupID sql.NullString
		if err := rows.Scan(&p.ID, &p.Name, &groupID); err != nil {
			return nil, fmt.Errorf("scanning panel config: %w", err)
		}
		if groupID.Valid {
			p.GroupID = groupID.String
		}
		panels = append(panels, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating panel config: %w", err)
	}
	return panels, nil
}

// ListGroups returns all configured groups ordered by id.
func (r *SQLiteConfigRepository) ListGroups(ctx context.Context) ([]Group, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, name, member_ids FROM groups ORDER BY id",
	)
	if err != nil {
		return nil, fmt.Errorf("querying groups: %w", err)
	}
	defer rows.Close()

	var groups []Group
	for rows.Next() {
		var g Group
		var memberJSON string
		if err := rows.Scan(&g.ID, &g.Name, &memberJSON); err != nil {
			return nil, fmt.Errorf("scanning group: %w", err)
		}
		// Tolerate corrupt membership payloads: an unreadable list
		// degrades to an empty group rather than failing the load.
		if json.Unmarshal([]byte(memberJSON), &g.MemberIDs) != nil {
			g.MemberIDs = []string{}
		}
		if g.MemberIDs == nil {
			g.MemberIDs = []string{}
		}
		groups = append(groups, g)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating groups: %w", err)
	}
	return groups, nil
}

// ReplacePanels replaces the whole panel configuration set in one transaction.
func (r *SQLiteConfigRepository) ReplacePanels(ctx context.Context, panels []Panel) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	if _, err := tx.ExecContext(ctx, "DELETE FROM panel_config"); err != nil {
		return fmt.Errorf("clearing panel config: %w", err)
	}

	for _, p := range panels {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO panel_config (id, name, group_id) VALUES (?, ?, ?)",
			p.ID, p.Name, nullableString(p.GroupID),
		); err != nil {
			return fmt.Errorf("inserting panel config %s: %w", p.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing panel config: %w", err)
	}
	return nil
}

// CreateGroup inserts a new group.
func (r *SQLiteConfigRepository) CreateGroup(ctx context.Context, group Group) error {
	memberJSON, err := json.Marshal(group.MemberIDs)
	if err != nil {
		return fmt.Errorf("marshalling member ids: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	_, err = r.db.ExecContext(ctx,
		"INSERT INTO groups (id, name, member_ids, created_at, updated_at) VALUES (?, ?, ?, ?, ?)",
		group.ID, group.Name, string(memberJSON), now, now,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrGroupExists
		}
		return fmt.Errorf("inserting group: %w", err)
	}
	return nil
}

// UpdateGroup rewrites a group's name and membership.
func (r *SQLiteConfigRepository) UpdateGroup(ctx context.Context, group Group) error {
	memberJSON, err := json.Marshal(group.MemberIDs)
	if err != nil {
		return fmt.Errorf("marshalling member ids: %w", err)
	}

	result, err := r.db.ExecContext(ctx,
		"UPDATE groups SET name = ?, member_ids = ?, updated_at = ? WHERE id = ?",
		group.Name, string(memberJSON), time.Now().UTC().Format(time.RFC3339), group.ID,
	)
	if err != nil {
		return fmt.Errorf("updating group: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrGroupNotFound
	}
	return nil
}

// DeleteGroup removes a group by ID.
func (r *SQLiteConfigRepository) DeleteGroup(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM groups WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting group: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrGroupNotFound
	}
	return nil
}

// nullableString returns nil for empty strings, or the string otherwise.
// Used for nullable TEXT columns in SQLite.
func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// isUniqueConstraintError checks if an error is a SQLite unique constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "unique constraint")
}

// errIsNoRows reports whether err is sql.ErrNoRows.
func errIsNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
