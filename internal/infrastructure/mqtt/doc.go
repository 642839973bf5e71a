// Package mqtt publishes Tint Core panel state to an MQTT broker.
//
// The broker integration is optional and publish-only: Tint Core
// consumes no inbound MQTT. Building-automation peers that want panel
// state subscribe to the broker rather than polling the REST API.
//
// # Topics
//
//	tintcore/system/status        service online/offline (retained, LWT)
//	tintcore/panel/{id}/state     latest panel state JSON (retained)
//
// Panel state messages are retained so late subscribers immediately
// see the last committed level. The Last Will publishes an
// offline_unexpected status on crash; a graceful shutdown publishes a
// plain offline status instead, so subscribers can tell the two apart.
//
// # Resilience
//
//   - Auto-reconnect with backoff between the configured initial and
//     maximum delays
//   - Publish timeouts (5s) so a dead broker never blocks a command
//   - Publish validation: no wildcards, QoS 0-2, payloads capped at 1MB
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	broadcaster.AddSink(mqtt.NewPanelStatePublisher(client))
package mqtt
