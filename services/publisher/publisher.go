package publisher

import "context"

// Publisher represents a service for publishing messages
type Publisher interface {
	// Publish publishes a message to the stream under the given field
	Publish(ctx context.Context, key string, message []byte) error

	// Close closes the publisher connection
	Close() error
}

// Nop is a Publisher that discards every message
type Nop struct{}

func (Nop) Publish(context.Context, string, []byte) error { return nil }
func (Nop) Close() error { return nil }
