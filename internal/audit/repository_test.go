package audit

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

// setupTestDB creates an in-memory SQLite database with the audit_log table.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	schema := `
		CREATE TABLE audit_log (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			ts INTEGER NOT NULL,
			actor TEXT NOT NULL,
			target_type TEXT NOT NULL CHECK (target_type IN ('panel', 'group')),
			target_id TEXT NOT NULL,
			level INTEGER NOT NULL,
			applied_to TEXT NOT NULL DEFAULT '[]',
			result TEXT NOT NULL
		) STRICT;
	`

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		t.Fatalf("failed to create test schema: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

// appendEntries inserts test entries with ascending timestamps.
func appendEntries(t *testing.T, repo *SQLiteRepository, entries []Entry) {
	t.Helper()
	ctx := context.Background()
	for i := range entries {
		if err := repo.Append(ctx, &entries[i]); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}
}

func TestAppend(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	entry := &Entry{
		TS:         1700000000,
		Actor:      "api",
		TargetType: TargetPanel,
		TargetID:   "P01",
		Level:      40,
		AppliedTo:  []string{"P01"},
		Result:     "panel updated",
	}
	if err := repo.Append(ctx, entry); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if entry.ID == 0 {
		t.Error("expected assigned ID")
	}

	second := &Entry{
		Actor:      "api",
		TargetType: TargetGroup,
		TargetID:   "G-facade",
		Level:      80,
		Result:     "no panels updated due to dwell time",
	}
	if err := repo.Append(ctx, second); err != nil {
		t.Fatalf("second Append failed: %v", err)
	}
	if second.ID <= entry.ID {
		t.Errorf("expected monotonic ids, got %d then %d", entry.ID, second.ID)
	}
	if second.TS == 0 {
		t.Error("expected TS to default to now")
	}
	if second.AppliedTo == nil {
		t.Error("expected AppliedTo to default to empty list")
	}
}

func TestList(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))

	appendEntries(t, repo, []Entry{
		{TS: 1000, Actor: "api", TargetType: TargetPanel, TargetID: "P01", Level: 10, AppliedTo: []string{"P01"}, Result: "panel updated"},
		{TS: 2000, Actor: "ops", TargetType: TargetPanel, TargetID: "P02", Level: 20, Result: "dwell time not met"},
		{TS: 3000, Actor: "api", TargetType: TargetGroup, TargetID: "G-facade", Level: 30, AppliedTo: []string{"P01", "P02"}, Result: "group updated"},
		{TS: 4000, Actor: "api", TargetType: TargetGroup, TargetID: "G-skylights", Level: 40, Result: "no panels updated due to dwell time"},
	})

	ctx := context.Background()

	t.Run("newest first", func(t *testing.T) {
		result, err := repo.List(ctx, Filter{})
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if result.Total != 4 || len(result.Entries) != 4 {
			t.Fatalf("expected 4 entries, got total=%d len=%d", result.Total, len(result.Entries))
		}
		if result.Entries[0].TS != 4000 || result.Entries[3].TS != 1000 {
			t.Errorf("not newest first: %d .. %d", result.Entries[0].TS, result.Entries[3].TS)
		}
		if result.Limit != 500 {
			t.Errorf("expected default limit 500, got %d", result.Limit)
		}
	})

	t.Run("limit clamped", func(t *testing.T) {
		result, err := repo.List(ctx, Filter{Limit: 5000})
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if result.Limit != 1000 {
			t.Errorf("expected clamped limit 1000, got %d", result.Limit)
		}
	})

	t.Run("pagination", func(t *testing.T) {
		result, err := repo.List(ctx, Filter{Limit: 2, Offset: 2})
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(result.Entries) != 2 || result.Total != 4 {
			t.Fatalf("expected page of 2 of 4, got len=%d total=%d", len(result.Entries), result.Total)
		}
		if result.Entries[0].TS != 2000 {
			t.Errorf("unexpected page start: %d", result.Entries[0].TS)
		}
	})

	t.Run("time window", func(t *testing.T) {
		result, err := repo.List(ctx, Filter{From: 2000, To: 3000})
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if result.Total != 2 {
			t.Errorf("expected 2 entries in window, got %d", result.Total)
		}
	})

	t.Run("target type", func(t *testing.T) {
		result, err := repo.List(ctx, Filter{TargetType: TargetGroup})
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if result.Total != 2 {
			t.Errorf("expected 2 group entries, got %d", result.Total)
		}
	})

	t.Run("target substring", func(t *testing.T) {
		result, err := repo.List(ctx, Filter{Target: "facade"})
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if result.Total != 1 || result.Entries[0].TargetID != "G-facade" {
			t.Errorf("unexpected match: %+v", result.Entries)
		}
	})

	t.Run("result substring", func(t *testing.T) {
		result, err := repo.List(ctx, Filter{Result: "dwell"})
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if result.Total != 2 {
			t.Errorf("expected 2 dwell entries, got %d", result.Total)
		}
	})

	t.Run("no matches", func(t *testing.T) {
		result, err := repo.List(ctx, Filter{Target: "nothing-here"})
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if result.Entries == nil {
			t.Error("expected empty slice, got nil")
		}
		if result.Total != 0 {
			t.Errorf("expected 0 matches, got %d", result.Total)
		}
	})
}

func TestList_CorruptAppliedTo(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)

	if _, err := db.Exec(
		`INSERT INTO audit_log (ts, actor, target_type, target_id, level, applied_to, result)
		 VALUES (1000, 'api', 'panel', 'P01', 10, 'not json', 'panel updated')`,
	); err != nil {
		t.Fatalf("failed to insert corrupt row: %v", err)
	}

	result, err := repo.List(context.Background(), Filter{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(result.Entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(result.Entries))
	}
	if len(result.Entries[0].AppliedTo) != 0 {
		t.Errorf("corrupt applied_to should degrade to empty, got %v", result.Entries[0].AppliedTo)
	}
}

func TestWriteCSV(t *testing.T) {
	entries := []Entry{
		{ID: 2, TS: 1700000100, Actor: "api", TargetType: TargetGroup, TargetID: "G-facade", Level: 80, AppliedTo: []string{"P01", "P02"}, Result: "group updated"},
		{ID: 1, TS: 1700000000, Actor: "ops", TargetType: TargetPanel, TargetID: "P01", Level: 40, AppliedTo: []string{"P01"}, Result: "panel updated"},
	}

	var sb strings.Builder
	if err := WriteCSV(&sb, entries); err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(sb.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header plus 2 records, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[0], "id,ts,time_utc") {
		t.Errorf("unexpected header: %s", lines[0])
	}
	// Chronological order: oldest record first.
	if !strings.HasPrefix(lines[1], "1,1700000000") {
		t.Errorf("expected oldest entry first, got %s", lines[1])
	}
	if !strings.Contains(lines[2], "P01;P02") {
		t.Errorf("expected joined applied_to, got %s", lines[2])
	}
}
