package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	_ "github.com/mattn/go-sqlite3"

	"github.com/tintworks/tintcore/internal/audit"
	"github.com/tintworks/tintcore/internal/backend"
	"github.com/tintworks/tintcore/internal/engine"
	"github.com/tintworks/tintcore/internal/fleet"
	"github.com/tintworks/tintcore/internal/infrastructure/config"
	"github.com/tintworks/tintcore/internal/infrastructure/logging"
)

const testAuthSecret = "test-secret-0123456789abcdef0123456789"

// testServer bundles the handler under test with its collaborators.
type testServer struct {
	handler http.Handler
	store   *fleet.Store
	sim     *backend.Simulator
	audit   *audit.SQLiteRepository
}

// setupTestServer builds a full API stack over in-memory SQLite with a
// simulated immediate backend.
func setupTestServer(t *testing.T, authEnabled bool) *testServer {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	schema := `
		CREATE TABLE panel_config (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			group_id TEXT,
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
		) STRICT;
		CREATE TABLE groups (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			member_ids TEXT NOT NULL DEFAULT '[]',
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),
			updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
		) STRICT;
		CREATE TABLE panel_state (
			panel_id TEXT PRIMARY KEY,
			level INTEGER NOT NULL DEFAULT 0 CHECK (level BETWEEN 0 AND 100),
			last_change_ts INTEGER NOT NULL DEFAULT 0
		) STRICT;
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
	t.Cleanup(func() { db.Close() })

	log := logging.Default()
	store := fleet.NewStore(
		fleet.NewSQLiteConfigRepository(db),
		fleet.NewSQLiteStateRepository(db),
		log,
	)
	ctx := context.Background()
	if err := store.Bootstrap(ctx); err != nil {
		t.Fatalf("Bootstrap failed: %v", err)
	}
	if err := store.Load(ctx); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	sim := backend.NewSimulator(store, log, backend.SimulatorOptions{
		MinDwell: 20 * time.Second,
		Strategy: backend.StrategyImmediate,
	})
	t.Cleanup(func() { sim.Close() })

	auditRepo := audit.NewSQLiteRepository(db)
	eng := engine.New(store, sim, auditRepo, log)

	srv, err := New(Deps{
		Config: config.APIConfig{Host: "127.0.0.1", Port: 0},
		WS:     config.WebSocketConfig{MaxMessageSize: 4096, PingInterval: 30, PongTimeout: 60},
		Security: config.SecurityConfig{
			Auth: config.AuthConfig{Enabled: authEnabled, Secret: testAuthSecret},
		},
		Logger:  log,
		Store:   store,
		Engine:  eng,
		Audit:   auditRepo,
		Mode:    backend.ModeSim,
		Version: "test",
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	return &testServer{
		handler: srv.buildRouter(),
		store:   store,
		sim:     sim,
		audit:   auditRepo,
	}
}

// doJSON performs a request with an optional JSON body and decodes the
// JSON response into out (when non-nil).
func (ts *testServer) doJSON(t *testing.T, method, path string, body, out any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	if out != nil && rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
		}
	}
	return rec
}

func setLevelBody(targetType, targetID string, level int) map[string]any {
	return map[string]any{
		"target_type": targetType,
		"target_id":   targetID,
		"level":       level,
	}
}

func TestHealth(t *testing.T) {
	ts := setupTestServer(t, false)

	var body map[string]any
	rec := ts.doJSON(t, http.MethodGet, "/api/v1/health", nil, &body)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if body["status"] != "ok" || body["mode"] != "sim" {
		t.Errorf("unexpected health body: %v", body)
	}
}

func TestListPanels(t *testing.T) {
	ts := setupTestServer(t, false)

	var body struct {
		Panels []fleet.Panel `json:"panels"`
		Count  int           `json:"count"`
	}
	rec := ts.doJSON(t, http.MethodGet, "/api/v1/panels", nil, &body)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if body.Count != 20 || len(body.Panels) != 20 {
		t.Errorf("expected 20 panels, got count=%d len=%d", body.Count, len(body.Panels))
	}
}

func TestGetPanel(t *testing.T) {
	ts := setupTestServer(t, false)

	var panel fleet.Panel
	rec := ts.doJSON(t, http.MethodGet, "/api/v1/panels/SK1", nil, &panel)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if panel.ID != "SK1" || panel.Name != "Skylight 1" {
		t.Errorf("unexpected panel: %+v", panel)
	}

	rec = ts.doJSON(t, http.MethodGet, "/api/v1/panels/P-void", nil, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestSetLevel_Panel(t *testing.T) {
	ts := setupTestServer(t, false)

	var result engine.Result
	rec := ts.doJSON(t, http.MethodPost, "/api/v1/commands/set-level",
		setLevelBody("panel", "P01", 60), &result)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !result.Accepted || result.Message != engine.MsgPanelUpdated {
		t.Errorf("unexpected result: %+v", result)
	}

	p, _ := ts.store.GetPanel("P01")
	if p.Level != 60 {
		t.Errorf("level not applied: %d", p.Level)
	}

	// Second command inside the dwell window: 429 with a result body.
	rec = ts.doJSON(t, http.MethodPost, "/api/v1/commands/set-level",
		setLevelBody("panel", "P01", 30), &result)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if result.Accepted || result.Message != engine.MsgDwellNotMet {
		t.Errorf("unexpected blocked result: %+v", result)
	}
}

func TestSetLevel_Group(t *testing.T) {
	ts := setupTestServer(t, false)

	var result engine.Result
	rec := ts.doJSON(t, http.MethodPost, "/api/v1/commands/set-level",
		setLevelBody("group", "G-facade", 80), &result)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !result.Accepted || len(result.AppliedTo) != 18 {
		t.Errorf("unexpected result: %+v", result)
	}

	// The whole group is still dwelling: all members blocked.
	rec = ts.doJSON(t, http.MethodPost, "/api/v1/commands/set-level",
		setLevelBody("group", "G-facade", 10), &result)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if result.Message != engine.MsgGroupNoPanels || len(result.AppliedTo) != 0 {
		t.Errorf("unexpected blocked result: %+v", result)
	}
}

func TestSetLevel_Validation(t *testing.T) {
	ts := setupTestServer(t, false)

	tests := []struct {
		name string
		body map[string]any
		want int
	}{
		{"unknown panel", setLevelBody("panel", "P-void", 50), http.StatusNotFound},
		{"unknown group", setLevelBody("group", "G-void", 50), http.StatusNotFound},
		{"level too high", setLevelBody("panel", "P01", 101), http.StatusBadRequest},
		{"level negative", setLevelBody("panel", "P01", -1), http.StatusBadRequest},
		{"bad target type", setLevelBody("window", "P01", 50), http.StatusBadRequest},
		{"missing target id", setLevelBody("panel", "", 50), http.StatusBadRequest},
		{"missing level", map[string]any{"target_type": "panel", "target_id": "P01"}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.doJSON(t, http.MethodPost, "/api/v1/commands/set-level", tt.body, nil)
			if rec.Code != tt.want {
				t.Errorf("expected %d, got %d: %s", tt.want, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestGroupCRUD(t *testing.T) {
	ts := setupTestServer(t, false)

	var group fleet.Group
	rec := ts.doJSON(t, http.MethodPost, "/api/v1/groups",
		map[string]any{"name": "East Wing", "member_ids": []string{"P01", "P02"}}, &group)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if group.ID == "" || group.Name != "East Wing" || len(group.MemberIDs) != 2 {
		t.Errorf("unexpected created group: %+v", group)
	}

	t.Run("reject unknown member", func(t *testing.T) {
		rec := ts.doJSON(t, http.MethodPost, "/api/v1/groups",
			map[string]any{"name": "Broken", "member_ids": []string{"P-void"}}, nil)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("reject duplicate id", func(t *testing.T) {
		rec := ts.doJSON(t, http.MethodPost, "/api/v1/groups",
			map[string]any{"id": group.ID, "name": "Clone"}, nil)
		if rec.Code != http.StatusConflict {
			t.Errorf("expected 409, got %d", rec.Code)
		}
	})

	t.Run("patch name only", func(t *testing.T) {
		var updated fleet.Group
		rec := ts.doJSON(t, http.MethodPatch, "/api/v1/groups/"+group.ID,
			map[string]any{"name": "East Facade"}, &updated)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if updated.Name != "East Facade" || len(updated.MemberIDs) != 2 {
			t.Errorf("patch clobbered members: %+v", updated)
		}
	})

	t.Run("patch members only", func(t *testing.T) {
		var updated fleet.Group
		rec := ts.doJSON(t, http.MethodPatch, "/api/v1/groups/"+group.ID,
			map[string]any{"member_ids": []string{"P03"}}, &updated)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if updated.Name != "East Facade" || len(updated.MemberIDs) != 1 {
			t.Errorf("patch clobbered name: %+v", updated)
		}
	})

	t.Run("patch unknown group", func(t *testing.T) {
		rec := ts.doJSON(t, http.MethodPatch, "/api/v1/groups/G-void",
			map[string]any{"name": "x"}, nil)
		if rec.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", rec.Code)
		}
	})

	t.Run("delete", func(t *testing.T) {
		rec := ts.doJSON(t, http.MethodDelete, "/api/v1/groups/"+group.ID, nil, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		rec = ts.doJSON(t, http.MethodGet, "/api/v1/groups/"+group.ID, nil, nil)
		if rec.Code != http.StatusNotFound {
			t.Errorf("expected 404 after delete, got %d", rec.Code)
		}
	})
}

func TestAuditEndpoints(t *testing.T) {
	ts := setupTestServer(t, false)

	// Generate some history.
	ts.doJSON(t, http.MethodPost, "/api/v1/commands/set-level", setLevelBody("panel", "P01", 40), nil)
	ts.doJSON(t, http.MethodPost, "/api/v1/commands/set-level", setLevelBody("panel", "P01", 50), nil)
	ts.doJSON(t, http.MethodPost, "/api/v1/commands/set-level", setLevelBody("group", "G-skylights", 90), nil)

	t.Run("list", func(t *testing.T) {
		var result audit.ListResult
		rec := ts.doJSON(t, http.MethodGet, "/api/v1/audit", nil, &result)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if result.Total != 3 {
			t.Errorf("expected 3 entries, got %d", result.Total)
		}
	})

	t.Run("filter by result", func(t *testing.T) {
		var result audit.ListResult
		rec := ts.doJSON(t, http.MethodGet, "/api/v1/audit?result=dwell", nil, &result)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if result.Total != 1 {
			t.Errorf("expected 1 dwell entry, got %d", result.Total)
		}
	})

	t.Run("filter by target type", func(t *testing.T) {
		var result audit.ListResult
		rec := ts.doJSON(t, http.MethodGet, "/api/v1/audit?target_type=group", nil, &result)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if result.Total != 1 || result.Entries[0].TargetID != "G-skylights" {
			t.Errorf("unexpected entries: %+v", result.Entries)
		}
	})

	t.Run("invalid filter", func(t *testing.T) {
		rec := ts.doJSON(t, http.MethodGet, "/api/v1/audit?from=yesterday", nil, nil)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("export csv", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/audit/export", nil)
		rec := httptest.NewRecorder()
		ts.handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if ct := rec.Header().Get("Content-Type"); ct != "text/csv" {
			t.Errorf("expected text/csv, got %s", ct)
		}
		lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
		if len(lines) != 4 {
			t.Errorf("expected header plus 3 records, got %d lines", len(lines))
		}
	})
}

func signTestToken(t *testing.T, subject, secret string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": subject,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

func TestAuth(t *testing.T) {
	ts := setupTestServer(t, true)

	t.Run("health is open", func(t *testing.T) {
		rec := ts.doJSON(t, http.MethodGet, "/api/v1/health", nil, nil)
		if rec.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", rec.Code)
		}
	})

	t.Run("missing token rejected", func(t *testing.T) {
		rec := ts.doJSON(t, http.MethodGet, "/api/v1/panels", nil, nil)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("bad token rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/panels", nil)
		req.Header.Set("Authorization", "Bearer "+signTestToken(t, "mallory", "wrong-secret"))
		rec := httptest.NewRecorder()
		ts.handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("valid token stamps actor", func(t *testing.T) {
		body, err := json.Marshal(setLevelBody("panel", "P02", 70))
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		req := httptest.NewRequest(http.MethodPost, "/api/v1/commands/set-level", bytes.NewReader(body))
		req.Header.Set("Authorization", "Bearer "+signTestToken(t, "alice", testAuthSecret))
		rec := httptest.NewRecorder()
		ts.handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}

		result, err := ts.audit.List(context.Background(), audit.Filter{})
		if err != nil {
			t.Fatalf("audit List failed: %v", err)
		}
		if len(result.Entries) != 1 || result.Entries[0].Actor != "alice" {
			t.Errorf("expected actor alice in audit, got %+v", result.Entries)
		}
	})
}

func TestRequestIDHeader(t *testing.T) {
	ts := setupTestServer(t, false)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("expected generated X-Request-ID header")
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("X-Request-ID", "fixed-id")
	rec = httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Request-ID"); got != "fixed-id" {
		t.Errorf("expected echoed request id, got %q", got)
	}
}

func TestBodySizeLimit(t *testing.T) {
	ts := setupTestServer(t, false)

	big := fmt.Sprintf(`{"target_type":"panel","target_id":"P01","level":50,"pad":%q}`,
		strings.Repeat("x", maxRequestBodySize+1))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/commands/set-level", strings.NewReader(big))
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for oversized body, got %d", rec.Code)
	}
}
