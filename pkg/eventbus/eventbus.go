// Package eventbus carries the engine's lifecycle events over watermill.
// Kafka backs production deployments; an in-process gochannel bus serves
// development and tests.
package eventbus

import (
	"context"

	"github.com/weftworks/weft/pkg/events"
)

type EventHandler func(ctx context.Context, event any) error

// EventBus publishes and consumes engine lifecycle events.
type EventBus interface {
	events.Publisher
	// Handle registers a handler for one event type. Must be called before
	// Subscribe.
	Handle(eventType events.EventType, handler EventHandler)
	// Subscribe starts consuming all topics until ctx is cancelled.
	Subscribe(ctx context.Context) error
	Close() error
	GenerateID() string
}
