package influxdb

import (
	"errors"
	"testing"
	"time"

	"github.com/tintworks/tintcore/internal/fleet"
	"github.com/tintworks/tintcore/internal/infrastructure/config"
)

func TestConnect_Disabled(t *testing.T) {
	_, err := Connect(config.InfluxDBConfig{Enabled: false})
	if !errors.Is(err, ErrDisabled) {
		t.Errorf("Connect(disabled) error = %v, want ErrDisabled", err)
	}
}

func TestConnect_InvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.InfluxDBConfig
	}{
		{"missing url", config.InfluxDBConfig{Enabled: true, Bucket: "tintcore"}},
		{"missing bucket", config.InfluxDBConfig{Enabled: true, URL: "http://localhost:8086"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Connect(tt.cfg)
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Connect() error = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestWriteTransition_NotConnected(t *testing.T) {
	// A closed client must drop points rather than panic.
	c := &Client{}
	c.WriteTransition("P01", "G-facade", 60, time.Now())
}

func TestTransitionRecorder_NotConnected(t *testing.T) {
	rec := NewTransitionRecorder(&Client{})
	rec.PanelState(fleet.Panel{ID: "P01", GroupID: "G-facade", Level: 60, LastChangeTS: time.Now().Unix()})
}

func TestCloseIdempotent(t *testing.T) {
	c := &Client{}
	if err := c.Close(); err != nil {
		t.Errorf("Close() = %v, want nil", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("second Close() = %v, want nil", err)
	}
}
