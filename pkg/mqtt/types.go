package mqtt

import (
	"context"
)

// Client defines the interface for a publish-only MQTT client.
// It abstracts the underlying paho implementation details.
type Client interface {
	// Start initiates the connection to the broker.
	// It is non-blocking and returns immediately; see Connected.
	Start(ctx context.Context) error

	// Disconnect cleanly closes the connection.
	Disconnect(ctx context.Context)

	// Publish sends a message to the specified topic.
	Publish(ctx context.Context, topic string, qos int, retain bool, payload []byte) error

	// Connected reports whether the last connection attempt succeeded and
	// has not been lost since.
	Connected() bool
}
