// Package cmd provides the shared wiring the weft binaries use to build
// their event bus, persistence, and executor registry from configuration.
package cmd

import (
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"

	"github.com/weftworks/weft/pkg/eventbus"
	"github.com/weftworks/weft/pkg/eventbus/kafka"
)

// NewEventBus builds the event bus for the given provider. "kafka" connects
// to the configured brokers; anything else falls back to the in-process bus.
func NewEventBus(provider, brokers, serviceName string, logger *slog.Logger) (eventbus.EventBus, error) {
	switch provider {
	case "kafka":
		pub, sub, err := kafka.CreateChannel(brokers, watermill.NewSlogLogger(logger), serviceName)
		if err != nil {
			return nil, fmt.Errorf("create kafka pub/sub: %w", err)
		}

		return eventbus.NewWatermillEventBus(pub, sub), nil
	case "", "memory":
		return eventbus.NewInProcessEventBus(logger), nil
	default:
		return nil, fmt.Errorf("unsupported event bus provider %q", provider)
	}
}
