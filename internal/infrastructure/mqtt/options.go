package mqtt

import (
	"encoding/json"
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/tintworks/tintcore/internal/infrastructure/config"
)

const (
	// defaultConnectTimeout is the maximum time to wait for initial connection.
	defaultConnectTimeout = 10 * time.Second

	// defaultPublishTimeout is the maximum time to wait for a publish to complete.
	defaultPublishTimeout = 5 * time.Second

	// defaultDisconnectQuiesce is how long (ms) to allow pending work to
	// finish during graceful disconnect.
	defaultDisconnectQuiesce = 250
)

// buildClientOptions constructs paho client options from config.
func buildClientOptions(cfg config.MQTTConfig) *pahomqtt.ClientOptions {
	opts := pahomqtt.NewClientOptions()

	scheme := "tcp"
	if cfg.Broker.TLS {
		scheme = "ssl"
	}
	broker := fmt.Sprintf("%s://%s:%d", scheme, cfg.Broker.Host, cfg.Broker.Port)
	opts.AddBroker(broker)

	opts.SetClientID(cfg.Broker.ClientID)

	if cfg.Auth.Username != "" {
		opts.SetUsername(cfg.Auth.Username)
		opts.SetPassword(cfg.Auth.Password)
	}

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(time.Duration(cfg.Reconnect.InitialDelay) * time.Second)
	opts.SetMaxReconnectInterval(time.Duration(cfg.Reconnect.MaxDelay) * time.Second)

	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	// Session state is irrelevant for a publish-only client.
	opts.SetCleanSession(true)
	opts.SetOrderMatters(false)

	return opts
}

// configureLWT sets up the Last Will and Testament message.
//
// The LWT is published by the broker if the client disconnects
// unexpectedly (crash, network failure). A graceful shutdown publishes
// a distinct offline status instead, so subscribers can tell crashes
// from planned restarts.
func configureLWT(opts *pahomqtt.ClientOptions, clientID string) {
	topic := Topics{}.SystemStatus()
	payload := buildLWTPayload(clientID)
	opts.SetBinaryWill(topic, payload, 1, true)
}

// statusPayload is the JSON body published on the system status topic.
type statusPayload struct {
	Status   string `json:"status"`
	ClientID string `json:"client_id"`
	TS       int64  `json:"ts"`
}

// buildLWTPayload creates the crash-detection payload. The broker
// stores this at connect time, so the timestamp is the connection
// time rather than the failure time.
func buildLWTPayload(clientID string) []byte {
	return marshalStatus("offline_unexpected", clientID)
}

// buildOnlinePayload creates the online status payload.
func buildOnlinePayload(clientID string) []byte {
	return marshalStatus("online", clientID)
}

// buildOfflinePayload creates the graceful offline status payload.
func buildOfflinePayload(clientID string) []byte {
	return marshalStatus("offline", clientID)
}

func marshalStatus(status, clientID string) []byte {
	payload, err := json.Marshal(statusPayload{
		Status:   status,
		ClientID: clientID,
		TS:       time.Now().Unix(),
	})
	if err != nil {
		// statusPayload contains only marshalable fields.
		return []byte(`{"status":"` + status + `"}`)
	}
	return payload
}
