package engine

// Result is the typed outcome of a control command. A dwell block is a
// normal result, not an error: callers branch on Accepted, never on
// message text.
type Result struct {
	// Accepted reports whether at least one panel took the change.
	Accepted bool `json:"accepted"`

	// AppliedTo lists the panel ids that took the change, in command
	// order. Empty when nothing changed.
	AppliedTo []string `json:"applied_to"`

	// Message is the human-readable summary recorded in the audit log.
	Message string `json:"message"`
}

// Audit result messages. These are display strings only; no code path
// may branch on them.
const (
	MsgPanelUpdated  = "panel updated"
	MsgDwellNotMet   = "dwell time not met"
	MsgGroupUpdated  = "group updated"
	MsgGroupNoPanels = "no panels updated due to dwell time"
)
