package mqtt

import (
	"errors"
	"strings"
	"testing"
)

func TestTopics(t *testing.T) {
	topics := Topics{}

	if got := topics.SystemStatus(); got != "tintcore/system/status" {
		t.Errorf("SystemStatus() = %q, want tintcore/system/status", got)
	}
	if got := topics.PanelState("P07"); got != "tintcore/panel/P07/state" {
		t.Errorf("PanelState(P07) = %q, want tintcore/panel/P07/state", got)
	}
}

func TestValidateTopic(t *testing.T) {
	tests := []struct {
		name    string
		topic   string
		wantErr bool
	}{
		{"valid topic", "tintcore/panel/P01/state", false},
		{"empty topic", "", true},
		{"plus wildcard", "tintcore/panel/+/state", true},
		{"hash wildcard", "tintcore/#", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateTopic(tt.topic)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateTopic(%q) error = %v, wantErr %v", tt.topic, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidTopic) {
				t.Errorf("error = %v, want ErrInvalidTopic", err)
			}
		})
	}
}

func TestPublishValidation(t *testing.T) {
	// A client that never connected rejects publishes before touching
	// the broker, so these cases run without a running broker.
	c := &Client{}

	t.Run("invalid QoS", func(t *testing.T) {
		err := c.Publish("tintcore/test", 3, []byte("x"))
		if !errors.Is(err, ErrInvalidQoS) {
			t.Errorf("error = %v, want ErrInvalidQoS", err)
		}
	})

	t.Run("oversized payload", func(t *testing.T) {
		payload := []byte(strings.Repeat("a", maxPayloadSize+1))
		err := c.Publish("tintcore/test", 0, payload)
		if !errors.Is(err, ErrPublishFailed) {
			t.Errorf("error = %v, want ErrPublishFailed", err)
		}
	})

	t.Run("not connected", func(t *testing.T) {
		err := c.Publish("tintcore/test", 0, []byte("x"))
		if !errors.Is(err, ErrNotConnected) {
			t.Errorf("error = %v, want ErrNotConnected", err)
		}
	})
}

func TestStatusPayloads(t *testing.T) {
	online := string(buildOnlinePayload("tintcore-1"))
	if !strings.Contains(online, `"status":"online"`) || !strings.Contains(online, `"client_id":"tintcore-1"`) {
		t.Errorf("online payload = %s", online)
	}

	offline := string(buildOfflinePayload("tintcore-1"))
	if !strings.Contains(offline, `"status":"offline"`) {
		t.Errorf("offline payload = %s", offline)
	}

	lwt := string(buildLWTPayload("tintcore-1"))
	if !strings.Contains(lwt, `"status":"offline_unexpected"`) {
		t.Errorf("lwt payload = %s", lwt)
	}
}

func TestCloseWithoutConnect(t *testing.T) {
	c := &Client{}
	if err := c.Close(); err != nil {
		t.Errorf("Close() on unconnected client = %v, want nil", err)
	}
}
