package mqtt

import "fmt"

// topicPrefix is the root of the Tint Core topic namespace.
const topicPrefix = "tintcore"

// Topics builds the topic names used by the service.
//
// Layout:
//
//	tintcore/system/status        service online/offline (retained, LWT)
//	tintcore/panel/{id}/state     latest panel state (retained)
type Topics struct{}

// SystemStatus returns the service status topic.
func (Topics) SystemStatus() string {
	return topicPrefix + "/system/status"
}

// PanelState returns the state topic for a panel.
func (Topics) PanelState(panelID string) string {
	return fmt.Sprintf("%s/panel/%s/state", topicPrefix, panelID)
}
