package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Target types recorded in audit entries.
const (
	TargetPanel = "panel"
	TargetGroup = "group"
)

// Entry is a single audit trail record.
type Entry struct {
	ID         int64    `json:"id"`
	TS         int64    `json:"ts"`
	Actor      string   `json:"actor"`
	TargetType string   `json:"target_type"`
	TargetID   string   `json:"target_id"`
	Level      int      `json:"level"`
	AppliedTo  []string `json:"applied_to"`
	Result     string   `json:"result"`
}

// Filter controls which audit entries to return.
type Filter struct {
	From       int64  // optional: inclusive lower bound on ts (unix seconds)
	To         int64  // optional: inclusive upper bound on ts
	TargetType string // optional: "panel" or "group"
	Target     string // optional: substring match on target_id or applied_to
	Result     string // optional: substring match on result
	Limit      int    // default 500, max 1000
	Offset     int    // pagination offset
}

// ListResult contains the paginated audit results.
type ListResult struct {
	Entries []Entry `json:"entries"`
	Total   int     `json:"total"`
	Limit   int     `json:"limit"`
	Offset  int     `json:"offset"`
}

// Repository defines the interface for audit log operations.
type Repository interface {
	Append(ctx context.Context, entry *Entry) error
	List(ctx context.Context, filter Filter) (*ListResult, error)
}

// SQLiteRepository stores audit entries in SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new audit repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Append inserts a new audit entry. TS defaults to now when zero; the
// assigned ID is written back into the entry.
func (r *SQLiteRepository) Append(ctx context.Context, entry *Entry) error {
	if entry.TS == 0 {
		entry.TS = time.Now().Unix()
	}
	if entry.AppliedTo == nil {
		entry.AppliedTo = []string{}
	}

	appliedJSON, err := json.Marshal(entry.AppliedTo)
	if err != nil {
		return fmt.Errorf("marshalling applied_to: %w", err)
	}

	result, err := r.db.ExecContext(ctx,
		`INSERT INTO audit_log (ts, actor, target_type, target_id, level, applied_to, result)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.TS, entry.Actor, entry.TargetType, entry.TargetID,
		entry.Level, string(appliedJSON), entry.Result,
	)
	if err != nil {
		return fmt.Errorf("inserting audit entry: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading audit entry id: %w", err)
	}
	entry.ID = id
	return nil
}

// List returns audit entries matching the filter, newest first.
func (r *SQLiteRepository) List(ctx context.Context, filter Filter) (*ListResult, error) { //nolint:gocognit // dynamic query builder: WHERE clause assembly from filter fields
	// Clamp limit.
	if filter.Limit <= 0 {
		filter.Limit = 500
	}
	if filter.Limit > 1000 { //nolint:mnd // max page size for audit queries
		filter.Limit = 1000
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	// Build WHERE clause dynamically.
	var conditions []string
	var args []any

	if filter.From > 0 {
		conditions = append(conditions, "ts >= ?")
		args = append(args, filter.From)
	}
	if filter.To > 0 {
		conditions = append(conditions, "ts <= ?")
		args = append(args, filter.To)
	}
	if filter.TargetType != "" {
		conditions = append(conditions, "target_type = ?")
		args = append(args, filter.TargetType)
	}
	if filter.Target != "" {
		// Matches both the commanded target and the panels a group
		// command actually reached.
		conditions = append(conditions, "(target_id LIKE ? OR applied_to LIKE ?)")
		pattern := "%" + filter.Target + "%"
		args = append(args, pattern, pattern)
	}
	if filter.Result != "" {
		conditions = append(conditions, "result LIKE ?")
		args = append(args, "%"+filter.Result+"%")
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM audit_log %s", where) //nolint:gosec // WHERE built from parameterised conditions, not user input
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting audit entries: %w", err)
	}

	query := fmt.Sprintf( //nolint:gosec // WHERE built from parameterised conditions, not user input
		"SELECT id, ts, actor, target_type, target_id, level, applied_to, result FROM audit_log %s ORDER BY ts DESC, id DESC LIMIT ? OFFSET ?",
		where,
	)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying audit entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var appliedJSON string

		if err := rows.Scan(&e.ID, &e.TS, &e.Actor, &e.TargetType,
			&e.TargetID, &e.Level, &appliedJSON, &e.Result); err != nil {
			return nil, fmt.Errorf("scanning audit entry: %w", err)
		}

		// A corrupt applied_to column degrades to an empty list rather
		// than poisoning the whole page.
		if json.Unmarshal([]byte(appliedJSON), &e.AppliedTo) != nil {
			e.AppliedTo = []string{}
		}
		if e.AppliedTo == nil {
			e.AppliedTo = []string{}
		}

		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating audit entries: %w", err)
	}

	if entries == nil {
		entries = []Entry{}
	}

	return &ListResult{
		Entries: entries,
		Total:   total,
		Limit:   filter.Limit,
		Offset:  filter.Offset,
	}, nil
}
