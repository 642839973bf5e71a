package mqtt

import "errors"

var (
	// ErrNotConnected indicates the client is not connected to the broker.
	ErrNotConnected = errors.New("mqtt: not connected to broker")

	// ErrConnectionFailed indicates the initial connection attempt failed.
	ErrConnectionFailed = errors.New("mqtt: connection failed")

	// ErrPublishFailed indicates a message could not be published.
	ErrPublishFailed = errors.New("mqtt: publish failed")

	// ErrInvalidTopic indicates a malformed or empty topic.
	ErrInvalidTopic = errors.New("mqtt: invalid topic")

	// ErrInvalidQoS indicates an unsupported QoS level (must be 0, 1, or 2).
	ErrInvalidQoS = errors.New("mqtt: invalid QoS level")
)
