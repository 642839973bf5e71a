package mqtt

import (
	"encoding/json"

	"github.com/tintworks/tintcore/internal/fleet"
)

// PanelStatePublisher forwards committed panel state to the broker as
// retained JSON messages. It satisfies the engine's state sink shape,
// so it can be registered alongside the WebSocket hub.
type PanelStatePublisher struct {
	client *Client
	qos    byte
}

// NewPanelStatePublisher creates a sink publishing on the client's
// configured QoS level.
func NewPanelStatePublisher(client *Client) *PanelStatePublisher {
	return &PanelStatePublisher{
		client: client,
		qos:    byte(client.cfg.QoS),
	}
}

// PanelState publishes the panel's current state to its state topic.
// Publish failures are logged through the client's logger and never
// propagate; the broker is a best-effort mirror of committed state.
func (p *PanelStatePublisher) PanelState(panel fleet.Panel) {
	payload, err := json.Marshal(panel)
	if err != nil {
		return
	}

	topic := Topics{}.PanelState(panel.ID)
	if err := p.client.PublishRetained(topic, p.qos, payload); err != nil {
		if logger := p.client.getLogger(); logger != nil {
			logger.Error("failed to publish panel state", "panel_id", panel.ID, "error", err)
		}
	}
}
