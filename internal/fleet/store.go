package fleet

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/tintworks/tintcore/internal/infrastructure/logging"
)

// Store is the in-memory authority for fleet configuration and panel
// state, backed by SQLite. All reads are served from a cached snapshot;
// writes go through the repositories first and update the cache only
// after the database accepts them.
type Store struct {
	configRepo ConfigRepository
	stateRepo  StateRepository
	logger     *logging.Logger

	mu     sync.RWMutex
	panels map[string]Panel
	groups map[string]Group
}

// NewStore creates a fleet store. Call Load before serving reads.
func NewStore(configRepo ConfigRepository, stateRepo StateRepository, logger *logging.Logger) *Store {
	return &Store{
		configRepo: configRepo,
		stateRepo:  stateRepo,
		logger:     logger,
		panels:     make(map[string]Panel),
		groups:     make(map[string]Group),
	}
}

// Load populates the cache from the database, merging panel
// configuration with runtime state. Panels without a state row start
// fully clear with a zero last-change timestamp.
func (s *Store) Load(ctx context.Context) error {
	panels, err := s.configRepo.ListPanels(ctx)
	if err != nil {
		return fmt.Errorf("loading panel config: %w", err)
	}

	groups, err := s.configRepo.ListGroups(ctx)
	if err != nil {
		return fmt.Errorf("loading groups: %w", err)
	}

	states, err := s.stateRepo.ListStates(ctx)
	if err != nil {
		return fmt.Errorf("loading panel state: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.panels = make(map[string]Panel, len(panels))
	for _, p := range panels {
		if st, ok := states[p.ID]; ok {
			p.Level = st.Level
			p.LastChangeTS = st.LastChangeTS
		}
		s.panels[p.ID] = p
	}

	s.groups = make(map[string]Group, len(groups))
	for _, g := range groups {
		s.groups[g.ID] = g
	}

	s.logger.Info("fleet store loaded",
		"panels", len(s.panels),
		"groups", len(s.groups),
	)
	return nil
}

// GetPanel returns a copy of the panel with the given ID.
func (s *Store) GetPanel(id string) (Panel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.panels[id]
	if !ok {
		return Panel{}, ErrPanelNotFound
	}
	return p, nil
}

// GetGroup returns a copy of the group with the given ID.
func (s *Store) GetGroup(id string) (Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.groups[id]
	if !ok {
		return Group{}, ErrGroupNotFound
	}
	return g.DeepCopy(), nil
}

// ListPanels returns all panels sorted by ID.
func (s *Store) ListPanels() []Panel {
	s.mu.RLock()
	defer s.mu.RUnlock()

	panels := make([]Panel, 0, len(s.panels))
	for _, p := range s.panels {
		panels = append(panels, p)
	}
	sort.Slice(panels, func(i, j int) bool { return panels[i].ID < panels[j].ID })
	return panels
}

// ListGroups returns all groups sorted by ID.
func (s *Store) ListGroups() []Group {
	s.mu.RLock()
	defer s.mu.RUnlock()

	groups := make([]Group, 0, len(s.groups))
	for _, g := range s.groups {
		groups = append(groups, g.DeepCopy())
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].ID < groups[j].ID })
	return groups
}

// Snapshot returns a copy of the full fleet view.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := NewSnapshot()
	for id, p := range s.panels {
		snap.Panels[id] = p
	}
	for id, g := range s.groups {
		snap.Groups[id] = g.DeepCopy()
	}
	return snap
}

// LastChange returns the last accepted change timestamp for a panel.
func (s *Store) LastChange(id string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.panels[id]
	if !ok {
		return 0, ErrPanelNotFound
	}
	return p.LastChangeTS, nil
}

// hasPanel reports whether a panel exists in the cache.
func (s *Store) hasPanel(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.panels[id]
	return ok
}

// The state writers below persist before taking the cache lock, so a
// slow SQLite write for one panel never blocks reads or writes on the
// rest of the fleet. Same-panel serialization is the dwell gate's job;
// panels are never deleted at runtime, so the existence check cannot
// go stale between the database write and the cache update.

// ReserveTimestamp persists a new last-change timestamp for a panel
// without touching its level. This claims the dwell window before the
// physical transition runs.
func (s *Store) ReserveTimestamp(ctx context.Context, id string, ts int64) error {
	if !s.hasPanel(id) {
		return ErrPanelNotFound
	}

	if err := s.stateRepo.SetTimestamp(ctx, id, ts); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.panels[id]
	p.LastChangeTS = ts
	s.panels[id] = p
	return nil
}

// CommitLevel persists a new tint level for a panel without touching
// its timestamp. This lands the deferred half of a transition whose
// window was already reserved.
func (s *Store) CommitLevel(ctx context.Context, id string, level int) error {
	if !ValidLevel(level) {
		return ErrInvalidLevel
	}
	if !s.hasPanel(id) {
		return ErrPanelNotFound
	}

	if err := s.stateRepo.SetLevel(ctx, id, level); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.panels[id]
	p.Level = level
	s.panels[id] = p
	return nil
}

// CommitState persists both level and timestamp in one write. Used by
// immediate transitions and the legacy snapshot import.
func (s *Store) CommitState(ctx context.Context, id string, level int, ts int64) error {
	if !ValidLevel(level) {
		return ErrInvalidLevel
	}
	if !s.hasPanel(id) {
		return ErrPanelNotFound
	}

	if err := s.stateRepo.UpsertState(ctx, id, level, ts); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.panels[id]
	p.Level = level
	p.LastChangeTS = ts
	s.panels[id] = p
	return nil
}

// CreateGroup creates a new group. When id is empty a sequential one
// is generated. Member IDs must name existing panels and contain no
// duplicates.
func (s *Store) CreateGroup(ctx context.Context, id, name string, memberIDs []string) (Group, error) {
	if strings.TrimSpace(name) == "" {
		return Group{}, ErrInvalidName
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.validateMembers(memberIDs); err != nil {
		return Group{}, err
	}

	if id == "" {
		id = s.nextGroupID()
	} else if _, exists := s.groups[id]; exists {
		return Group{}, ErrGroupExists
	}

	g := Group{ID: id, Name: name, MemberIDs: normaliseMembers(memberIDs)}
	if err := s.configRepo.CreateGroup(ctx, g); err != nil {
		return Group{}, err
	}

	s.groups[g.ID] = g
	s.logger.Info("group created", "group_id", g.ID, "members", len(g.MemberIDs))
	return g.DeepCopy(), nil
}

// UpdateGroup rewrites an existing group's name and membership.
func (s *Store) UpdateGroup(ctx context.Context, id, name string, memberIDs []string) (Group, error) {
	if strings.TrimSpace(name) == "" {
		return Group{}, ErrInvalidName
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.groups[id]; !ok {
		return Group{}, ErrGroupNotFound
	}
	if err := s.validateMembers(memberIDs); err != nil {
		return Group{}, err
	}

	g := Group{ID: id, Name: name, MemberIDs: normaliseMembers(memberIDs)}
	if err := s.configRepo.UpdateGroup(ctx, g); err != nil {
		return Group{}, err
	}

	s.groups[id] = g
	s.logger.Info("group updated", "group_id", id, "members", len(g.MemberIDs))
	return g.DeepCopy(), nil
}

// DeleteGroup removes a group. Panels keep their state.
func (s *Store) DeleteGroup(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.groups[id]; !ok {
		return ErrGroupNotFound
	}

	if err := s.configRepo.DeleteGroup(ctx, id); err != nil {
		return err
	}

	delete(s.groups, id)
	s.logger.Info("group deleted", "group_id", id)
	return nil
}

// validateMembers checks that every member names an existing panel and
// that the list contains no duplicates. Caller must hold the lock.
func (s *Store) validateMembers(memberIDs []string) error {
	seen := make(map[string]struct{}, len(memberIDs))
	for _, id := range memberIDs {
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateMember, id)
		}
		seen[id] = struct{}{}
		if _, ok := s.panels[id]; !ok {
			return fmt.Errorf("%w: %s", ErrUnknownMember, id)
		}
	}
	return nil
}

// nextGroupID returns the next free sequential group ID of the form
// "G-n". Caller must hold the lock.
func (s *Store) nextGroupID() string {
	max := 0
	for id := range s.groups {
		suffix, ok := strings.CutPrefix(id, "G-")
		if !ok {
			continue
		}
		n, err := strconv.Atoi(suffix)
		if err != nil {
			continue
		}
		if n > max {
			max = n
		}
	}
	return fmt.Sprintf("G-%d", max+1)
}

// normaliseMembers returns a non-nil copy of the member list.
func normaliseMembers(memberIDs []string) []string {
	out := make([]string, len(memberIDs))
	copy(out, memberIDs)
	return out
}
