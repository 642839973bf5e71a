package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tintworks/tintcore/internal/fleet"
	"github.com/tintworks/tintcore/internal/infrastructure/logging"
)

func newRemoteAgainst(t *testing.T, store *fleet.Store, handler http.HandlerFunc) *Remote {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewRemote(store, logging.Default(), RemoteOptions{
		URL:    srv.URL,
		APIKey: "test-key",
		SiteID: "site-1",
	})
}

func TestRemote_ApplyAccepted(t *testing.T) {
	store := setupFleetStore(t)

	var gotPath, gotAuth string
	var gotLevel int
	remote := newRemoteAgainst(t, store, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		var req tintRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		gotLevel = req.Level
		w.WriteHeader(http.StatusAccepted)
	})
	defer remote.Close()

	status, err := remote.Apply(context.Background(), "P01", 45)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if status != StatusApplied {
		t.Fatalf("expected StatusApplied, got %v", status)
	}

	if gotPath != "/sites/site-1/panels/P01/tint" {
		t.Errorf("unexpected path: %s", gotPath)
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("unexpected auth header: %s", gotAuth)
	}
	if gotLevel != 45 {
		t.Errorf("unexpected level payload: %d", gotLevel)
	}

	// Accepted changes mirror into the local store.
	p, _ := store.GetPanel("P01")
	if p.Level != 45 || p.LastChangeTS == 0 {
		t.Errorf("local mirror not updated: %+v", p)
	}
}

func TestRemote_ApplyBlocked(t *testing.T) {
	store := setupFleetStore(t)
	remote := newRemoteAgainst(t, store, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})
	defer remote.Close()

	status, err := remote.Apply(context.Background(), "P01", 45)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if status != StatusBlocked {
		t.Errorf("expected StatusBlocked, got %v", status)
	}

	// Blocked upstream means no local mirror change.
	p, _ := store.GetPanel("P01")
	if p.Level != 0 || p.LastChangeTS != 0 {
		t.Errorf("blocked command touched local state: %+v", p)
	}
}

func TestRemote_ApplyNotFound(t *testing.T) {
	store := setupFleetStore(t)
	remote := newRemoteAgainst(t, store, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	defer remote.Close()

	_, err := remote.Apply(context.Background(), "P01", 45)
	if !errors.Is(err, fleet.ErrPanelNotFound) {
		t.Errorf("expected ErrPanelNotFound, got %v", err)
	}
}

func TestRemote_ApplyUpstreamError(t *testing.T) {
	store := setupFleetStore(t)
	remote := newRemoteAgainst(t, store, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "vendor exploded", http.StatusBadGateway)
	})
	defer remote.Close()

	_, err := remote.Apply(context.Background(), "P01", 45)
	var backendErr *Error
	if !errors.As(err, &backendErr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if backendErr.Status != http.StatusBadGateway {
		t.Errorf("expected upstream status 502, got %d", backendErr.Status)
	}
}

func TestRemote_UnknownPanelShortCircuits(t *testing.T) {
	store := setupFleetStore(t)
	called := false
	remote := newRemoteAgainst(t, store, func(w http.ResponseWriter, _ *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	})
	defer remote.Close()

	_, err := remote.Apply(context.Background(), "P-void", 45)
	if !errors.Is(err, fleet.ErrPanelNotFound) {
		t.Errorf("expected ErrPanelNotFound, got %v", err)
	}
	if called {
		t.Error("unknown panel should not reach the vendor")
	}
}

func TestRemote_ApplyGroup(t *testing.T) {
	store := setupFleetStore(t)

	var gotPath string
	var gotLevel int
	remote := newRemoteAgainst(t, store, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		var req tintRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		gotLevel = req.Level
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(tintGroupResponse{Applied: []string{"SK1"}}) //nolint:errcheck // Test handler
	})
	defer remote.Close()

	applied, err := remote.ApplyGroup(context.Background(), "G-skylights", 30)
	if err != nil {
		t.Fatalf("ApplyGroup failed: %v", err)
	}
	if len(applied) != 1 || applied[0] != "SK1" {
		t.Fatalf("applied = %v, want [SK1]", applied)
	}
	if gotPath != "/sites/site-1/groups/G-skylights/tint" {
		t.Errorf("unexpected path: %s", gotPath)
	}
	if gotLevel != 30 {
		t.Errorf("unexpected level payload: %d", gotLevel)
	}

	// Only the vendor-confirmed member mirrors locally.
	sk1, _ := store.GetPanel("SK1")
	if sk1.Level != 30 || sk1.LastChangeTS == 0 {
		t.Errorf("applied member not mirrored: %+v", sk1)
	}
	sk2, _ := store.GetPanel("SK2")
	if sk2.Level != 0 || sk2.LastChangeTS != 0 {
		t.Errorf("unapplied member touched: %+v", sk2)
	}
}

func TestRemote_ApplyGroupAllBlocked(t *testing.T) {
	store := setupFleetStore(t)
	remote := newRemoteAgainst(t, store, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})
	defer remote.Close()

	applied, err := remote.ApplyGroup(context.Background(), "G-skylights", 30)
	if err != nil {
		t.Fatalf("ApplyGroup failed: %v", err)
	}
	if len(applied) != 0 {
		t.Errorf("applied = %v, want empty", applied)
	}
}

func TestRemote_ApplyGroupErrors(t *testing.T) {
	t.Run("unknown group short-circuits", func(t *testing.T) {
		store := setupFleetStore(t)
		called := false
		remote := newRemoteAgainst(t, store, func(w http.ResponseWriter, _ *http.Request) {
			called = true
			w.WriteHeader(http.StatusOK)
		})
		defer remote.Close()

		_, err := remote.ApplyGroup(context.Background(), "G-void", 30)
		if !errors.Is(err, fleet.ErrGroupNotFound) {
			t.Errorf("expected ErrGroupNotFound, got %v", err)
		}
		if called {
			t.Error("unknown group should not reach the vendor")
		}
	})

	t.Run("vendor 404", func(t *testing.T) {
		store := setupFleetStore(t)
		remote := newRemoteAgainst(t, store, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})
		defer remote.Close()

		_, err := remote.ApplyGroup(context.Background(), "G-skylights", 30)
		if !errors.Is(err, fleet.ErrGroupNotFound) {
			t.Errorf("expected ErrGroupNotFound, got %v", err)
		}
	})

	t.Run("upstream failure", func(t *testing.T) {
		store := setupFleetStore(t)
		remote := newRemoteAgainst(t, store, func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "vendor exploded", http.StatusBadGateway)
		})
		defer remote.Close()

		_, err := remote.ApplyGroup(context.Background(), "G-skylights", 30)
		var backendErr *Error
		if !errors.As(err, &backendErr) {
			t.Fatalf("expected *Error, got %v", err)
		}
		if backendErr.Status != http.StatusBadGateway {
			t.Errorf("expected upstream status 502, got %d", backendErr.Status)
		}
	})
}
