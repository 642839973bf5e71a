package fleet

import (
	"context"
	"fmt"
)

// Default fleet layout seeded on first start.
const (
	facadePanelCount  = 18
	facadeGroupID     = "G-facade"
	facadeGroupName   = "Facade"
	skylightGroupID   = "G-skylights"
	skylightGroupName = "Skylights"
)

// Bootstrap seeds the default fleet when the database holds no panel
// configuration: 18 facade panels and 2 skylights, grouped as
// "G-facade" and "G-skylights". It is a no-op when any panels exist,
// so restarts never reset levels or dwell timestamps.
//
// Call before Load.
func (s *Store) Bootstrap(ctx context.Context) error {
	existing, err := s.configRepo.ListPanels(ctx)
	if err != nil {
		return fmt.Errorf("checking existing fleet: %w", err)
	}
	if len(existing) > 0 {
		return nil
	}

	panels, groups := DefaultFleet()
	if err := s.configRepo.ReplacePanels(ctx, panels); err != nil {
		return fmt.Errorf("seeding panels: %w", err)
	}
	for _, g := range groups {
		if err := s.configRepo.CreateGroup(ctx, g); err != nil {
			return fmt.Errorf("seeding group %s: %w", g.ID, err)
		}
	}

	s.logger.Info("default fleet seeded",
		"panels", len(panels),
		"groups", len(groups),
	)
	return nil
}

// DefaultFleet returns the seed configuration: panels P01..P18 named
// "Facade 1".."Facade 18" plus skylights SK1/SK2, and the two groups
// covering them.
func DefaultFleet() ([]Panel, []Group) {
	panels := make([]Panel, 0, facadePanelCount+2)
	facadeMembers := make([]string, 0, facadePanelCount)

	for i := 1; i <= facadePanelCount; i++ {
		id := fmt.Sprintf("P%02d", i)
		panels = append(panels, Panel{
			ID:      id,
			Name:    fmt.Sprintf("Facade %d", i),
			GroupID: facadeGroupID,
		})
		facadeMembers = append(facadeMembers, id)
	}

	skylightMembers := []string{"SK1", "SK2"}
	for i, id := range skylightMembers {
		panels = append(panels, Panel{
			ID:      id,
			Name:    fmt.Sprintf("Skylight %d", i+1),
			GroupID: skylightGroupID,
		})
	}

	groups := []Group{
		{ID: facadeGroupID, Name: facadeGroupName, MemberIDs: facadeMembers},
		{ID: skylightGroupID, Name: skylightGroupName, MemberIDs: skylightMembers},
	}
	return panels, groups
}
