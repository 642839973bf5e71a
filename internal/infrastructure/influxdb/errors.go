package influxdb

import "errors"

var (
	// ErrDisabled indicates telemetry is turned off in config.
	ErrDisabled = errors.New("influxdb: telemetry disabled")

	// ErrInvalidConfig indicates missing or malformed connection settings.
	ErrInvalidConfig = errors.New("influxdb: invalid configuration")

	// ErrConnectionFailed indicates the server could not be reached at startup.
	ErrConnectionFailed = errors.New("influxdb: connection failed")

	// ErrNotConnected indicates the client is closed or never connected.
	ErrNotConnected = errors.New("influxdb: not connected")
)
