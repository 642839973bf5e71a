package fleet

// Tint level bounds. A level of 0 is fully clear, 100 fully tinted.
const (
	MinLevel = 0
	MaxLevel = 100
)

// ValidLevel reports whether level is within the allowed tint range.
func ValidLevel(level int) bool {
	return level >= MinLevel && level <= MaxLevel
}

// Panel is a single electrochromic panel.
//
// ID and Name are structural configuration; Level and LastChangeTS are
// runtime state. The two halves are persisted separately so frequent
// state writes never rewrite configuration rows.
type Panel struct {
	// ID is a stable short code, e.g. "P01" or "SK1".
	ID string `json:"id"`

	// Name is the human-readable panel name.
	Name string `json:"name"`

	// GroupID is an optional back-reference to the group this panel was
	// seeded into. Informational only; membership is owned by Group.
	GroupID string `json:"group_id,omitempty"`

	// Level is the current commanded/observed tint level (0-100).
	Level int `json:"level"`

	// LastChangeTS is the unix-seconds timestamp of the last accepted or
	// committed change. The dwell gate reads and reserves this field.
	LastChangeTS int64 `json:"last_change_ts"`
}

// Group is a named set of panels controlled together.
// Groups own no lifecycle state beyond membership.
type Group struct {
	ID   string `json:"id"`
	Name string `json:"name"`

	// MemberIDs is a duplicate-free set of panel ids. Members are not
	// required to exist: dangling ids are tolerated and skipped at
	// command time.
	MemberIDs []string `json:"member_ids"`
}

// DeepCopy returns an independent copy of the group, so callers can
// mutate the member list without racing the store's cache.
func (g Group) DeepCopy() Group {
	out := g
	out.MemberIDs = make([]string, len(g.MemberIDs))
	copy(out.MemberIDs, g.MemberIDs)
	return out
}

// Snapshot is the composite read view of all panels and groups at a
// point in time. It is derived by merging persisted configuration and
// persisted runtime state, not stored itself.
type Snapshot struct {
	Panels map[string]Panel `json:"panels"`
	Groups map[string]Group `json:"groups"`
}

// NewSnapshot returns an empty snapshot with initialised maps.
func NewSnapshot() Snapshot {
	return Snapshot{
		Panels: make(map[string]Panel),
		Groups: make(map[string]Group),
	}
}
