package mqtt

import (
	"fmt"
	"strings"
)

// maxPayloadSize limits publish payloads to 1MB.
const maxPayloadSize = 1 << 20

// Publish sends a message to the specified topic.
//
// The message is not retained; use PublishRetained for state topics
// where late subscribers must see the last value.
func (c *Client) Publish(topic string, qos byte, payload []byte) error {
	return c.publish(topic, qos, false, payload)
}

// PublishString is a convenience wrapper for string payloads.
func (c *Client) PublishString(topic string, qos byte, payload string) error {
	return c.Publish(topic, qos, []byte(payload))
}

// PublishRetained sends a retained message to the specified topic.
//
// The broker stores the message and delivers it immediately to new
// subscribers, so panel state topics always reflect the latest level.
func (c *Client) PublishRetained(topic string, qos byte, payload []byte) error {
	return c.publish(topic, qos, true, payload)
}

func (c *Client) publish(topic string, qos byte, retained bool, payload []byte) error {
	if err := validateTopic(topic); err != nil {
		return err
	}
	if qos > 2 {
		return fmt.Errorf("%w: %d", ErrInvalidQoS, qos)
	}
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: payload exceeds %d bytes", ErrPublishFailed, maxPayloadSize)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	token := c.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: timeout publishing to %s", ErrPublishFailed, topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}

	return nil
}

// validateTopic checks that a topic is well-formed for publishing.
// Wildcards are only valid in subscriptions.
func validateTopic(topic string) error {
	if topic == "" {
		return fmt.Errorf("%w: empty topic", ErrInvalidTopic)
	}
	if strings.ContainsAny(topic, "+#") {
		return fmt.Errorf("%w: wildcards not allowed in publish topic %q", ErrInvalidTopic, topic)
	}
	return nil
}
