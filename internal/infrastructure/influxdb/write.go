package influxdb

import (
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"

	"github.com/tintworks/tintcore/internal/fleet"
)

// measurementTintLevel holds one point per committed tint transition.
const measurementTintLevel = "tint_level"

// WriteTransition records a committed tint transition.
//
// The point is batched and written asynchronously; a disconnected
// client drops the point silently, telemetry being best-effort.
func (c *Client) WriteTransition(panelID, groupID string, level int, ts time.Time) {
	if !c.IsConnected() {
		return
	}

	tags := map[string]string{
		"panel_id": panelID,
	}
	if groupID != "" {
		tags["group_id"] = groupID
	}

	point := influxdb2.NewPoint(
		measurementTintLevel,
		tags,
		map[string]interface{}{
			"level": level,
		},
		ts,
	)
	c.writeAPI.WritePoint(point)
}

// TransitionRecorder forwards committed panel state to InfluxDB. It
// satisfies the engine's state sink shape, so it can be registered
// alongside the WebSocket hub and the MQTT publisher.
type TransitionRecorder struct {
	client *Client
}

// NewTransitionRecorder creates a telemetry sink backed by the client.
func NewTransitionRecorder(client *Client) *TransitionRecorder {
	return &TransitionRecorder{client: client}
}

// PanelState records the panel's new level at its last-change time.
func (r *TransitionRecorder) PanelState(panel fleet.Panel) {
	ts := time.Unix(panel.LastChangeTS, 0)
	r.client.WriteTransition(panel.ID, panel.GroupID, panel.Level, ts)
}
