package engine

import (
	"github.com/tintworks/tintcore/internal/fleet"
	"github.com/tintworks/tintcore/internal/infrastructure/logging"
)

// StateSink receives committed panel state. Implementations fan the
// change out to their transport: WebSocket clients, the MQTT broker,
// the telemetry store.
type StateSink interface {
	PanelState(panel fleet.Panel)
}

// Broadcaster adapts commit notifications from the backend into full
// panel records for every registered sink. Sinks run synchronously on
// the committing goroutine and must not block.
type Broadcaster struct {
	store  *fleet.Store
	logger *logging.Logger
	sinks  []StateSink
}

// NewBroadcaster creates a broadcaster over the fleet store.
func NewBroadcaster(store *fleet.Store, logger *logging.Logger) *Broadcaster {
	return &Broadcaster{
		store:  store,
		logger: logger.With("component", "broadcaster"),
	}
}

// AddSink registers a sink. Not safe to call after the backend starts
// committing transitions.
func (b *Broadcaster) AddSink(sink StateSink) {
	b.sinks = append(b.sinks, sink)
}

// PanelChanged implements backend.Publisher.
func (b *Broadcaster) PanelChanged(panelID string, _ int) {
	panel, err := b.store.GetPanel(panelID)
	if err != nil {
		b.logger.Warn("committed panel vanished before broadcast", "panel_id", panelID)
		return
	}
	for _, sink := range b.sinks {
		sink.PanelState(panel)
	}
}
