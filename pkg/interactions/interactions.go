// Package interactions delivers human-in-the-loop requests over outbound
// channels. The adapter-backed channel reuses the external-action adapters
// so approval prompts ride the same integrations as workflow actions.
package interactions

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/weftworks/weft/pkg/adapters"
)

// Config binds logical channel names to concrete delivery targets.
type Config struct {
	// UserID owns the credentials used for deliveries.
	UserID string
	// SlackChannel receives requests for the "slack" channel.
	SlackChannel string
	// EmailTo receives requests for the "email" channel.
	EmailTo string
}

// AdapterChannel sends interaction requests through the adapter registry.
type AdapterChannel struct {
	registry    *adapters.Registry
	credentials adapters.CredentialResolver
	config      Config
	logger      *slog.Logger
}

// NewAdapterChannel builds the channel over the shared adapter registry.
func NewAdapterChannel(registry *adapters.Registry, credentials adapters.CredentialResolver, config Config, logger *slog.Logger) *AdapterChannel {
	return &AdapterChannel{
		registry:    registry,
		credentials: credentials,
		config:      config,
		logger:      logger.With("module", "interactions"),
	}
}

// SendInteractionRequest delivers the prompt and returns the interaction id
// a later response will reference.
func (c *AdapterChannel) SendInteractionRequest(ctx context.Context, channel string, payload map[string]any) (string, error) {
	interactionID := uuid.NewString()
	message, _ := payload["message"].(string)
	executionID, _ := payload["execution_id"].(string)

	text := fmt.Sprintf("%s\n(interaction %s, execution %s)", message, interactionID, executionID)

	var err error

	switch channel {
	case "slack":
		err = c.send(ctx, "slack", "send_message", map[string]any{
			"channel": c.config.SlackChannel,
			"text":    text,
		})
	case "email":
		err = c.send(ctx, "email", "send", map[string]any{
			"to":      c.config.EmailTo,
			"subject": "Approval requested",
			"body":    text,
		})
	default:
		return "", fmt.Errorf("unsupported interaction channel %q", channel)
	}

	if err != nil {
		return "", err
	}

	c.logger.Info("interaction request sent",
		"interaction_id", interactionID, "channel", channel, "execution_id", executionID)

	return interactionID, nil
}

func (c *AdapterChannel) send(ctx context.Context, provider, operation string, parameters map[string]any) error {
	adapter, err := c.registry.Get(provider)
	if err != nil {
		return err
	}

	credentials, err := c.credentials.Resolve(ctx, c.config.UserID, provider)
	if err != nil {
		return err
	}

	_, err = adapter.Call(ctx, operation, parameters, credentials)

	return err
}

// LogChannel records interaction requests in the log only. It keeps paused
// workflows testable in deployments with no outbound channel configured.
type LogChannel struct {
	logger *slog.Logger
}

// NewLogChannel builds the log-only channel.
func NewLogChannel(logger *slog.Logger) *LogChannel {
	return &LogChannel{logger: logger.With("module", "interactions")}
}

func (c *LogChannel) SendInteractionRequest(_ context.Context, channel string, payload map[string]any) (string, error) {
	interactionID := uuid.NewString()

	c.logger.Info("interaction requested",
		"interaction_id", interactionID,
		"channel", channel,
		"execution_id", payload["execution_id"],
		"message", payload["message"])

	return interactionID, nil
}
