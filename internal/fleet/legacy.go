package fleet

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
)

// legacySnapshot mirrors the JSON state file written by the previous
// generation of the service.
type legacySnapshot struct {
	Panels map[string]legacyPanel `json:"panels"`
}

type legacyPanel struct {
	Name         string `json:"name"`
	Level        int    `json:"level"`
	LastChangeTS int64  `json:"last_change_ts"`
}

// ImportLegacySnapshot performs a one-time migration of panel state
// from a legacy JSON snapshot file into the database. Dwell timestamps
// are carried over unchanged so the gate keeps counting from the old
// deployment's last accepted change.
//
// The import is skipped when the file does not exist or when any state
// rows are already present. Panels named in the snapshot but absent
// from the configured fleet are logged and ignored.
//
// Call after Bootstrap and before Load.
func (s *Store) ImportLegacySnapshot(ctx context.Context, path string) error {
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading legacy snapshot: %w", err)
	}

	states, err := s.stateRepo.ListStates(ctx)
	if err != nil {
		return fmt.Errorf("checking existing state: %w", err)
	}
	if len(states) > 0 {
		s.logger.Debug("legacy snapshot present but state already migrated", "path", path)
		return nil
	}

	var snap legacySnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("parsing legacy snapshot %s: %w", path, err)
	}

	configured, err := s.configRepo.ListPanels(ctx)
	if err != nil {
		return fmt.Errorf("loading panel config: %w", err)
	}
	known := make(map[string]struct{}, len(configured))
	for _, p := range configured {
		known[p.ID] = struct{}{}
	}

	imported := 0
	for id, lp := range snap.Panels {
		if _, ok := known[id]; !ok {
			s.logger.Warn("legacy snapshot names unknown panel, skipping", "panel_id", id)
			continue
		}
		if !ValidLevel(lp.Level) {
			s.logger.Warn("legacy snapshot has invalid level, skipping", "panel_id", id, "level", lp.Level)
			continue
		}
		if err := s.stateRepo.UpsertState(ctx, id, lp.Level, lp.LastChangeTS); err != nil {
			return fmt.Errorf("importing state for %s: %w", id, err)
		}
		imported++
	}

	s.logger.Info("legacy snapshot imported", "path", path, "panels", imported)
	return nil
}
