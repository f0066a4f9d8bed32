package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"github.com/weftworks/weft/pkg/adapters"
	"github.com/weftworks/weft/pkg/executors"
	"github.com/weftworks/weft/pkg/interactions"
	"github.com/weftworks/weft/pkg/llm"
	"github.com/weftworks/weft/pkg/mapping"
)

const (
	defaultHTTPTimeout = 30 * time.Second
	defaultMemoryTTL   = 24 * time.Hour
)

// RegistryConfig collects the optional integrations behind the executor
// registry. Empty fields disable the corresponding node types or fall back
// to in-process defaults.
type RegistryConfig struct {
	// CredentialsFile points at a JSON map of "user/provider" entries.
	CredentialsFile string
	// RedisURL enables Redis-backed memory stores.
	RedisURL string
	// LLMAPIKey enables AI agent nodes.
	LLMAPIKey string
	// LLMBaseURL overrides the default OpenAI endpoint.
	LLMBaseURL string
	// SlackChannel and EmailTo route human-in-the-loop requests; with
	// neither set, interaction requests are logged only.
	SlackChannel string
	EmailTo      string
	// InteractionUserID owns the credentials used for interaction delivery.
	InteractionUserID string
	// HTTPTimeout bounds every outbound call. Zero means 30s.
	HTTPTimeout time.Duration
}

// NewExecutorRegistry wires the executor set from configuration: the HTTP
// connection pool, the external-action adapters, optional Redis memory
// stores, the LLM client, and the interaction channel.
func NewExecutorRegistry(logger *slog.Logger, cfg RegistryConfig) (*executors.Registry, error) {
	timeout := cfg.HTTPTimeout
	if timeout == 0 {
		timeout = defaultHTTPTimeout
	}

	pool := adapters.NewConnectionPool(timeout)

	adapterRegistry := adapters.NewRegistry()
	adapterRegistry.Register(adapters.NewSlackAdapter(pool, ""))
	adapterRegistry.Register(adapters.NewGitHubAdapter(pool, ""))
	adapterRegistry.Register(adapters.NewCalendarAdapter(pool, ""))
	adapterRegistry.Register(adapters.NewEmailAdapter())

	deps := executors.Dependencies{
		HTTPClient: pool.Client(),
		Mapping:    mapping.NewProcessor(mapping.NewFunctionRegistry()),
		Adapters:   adapterRegistry,
	}

	if cfg.CredentialsFile != "" {
		credentials, err := loadCredentials(cfg.CredentialsFile)
		if err != nil {
			return nil, err
		}

		deps.Credentials = credentials
	}

	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}

		client := redis.NewClient(opts)
		deps.KeyValue = executors.NewRedisKeyValueStore(client, defaultMemoryTTL)
		deps.Conversations = executors.NewRedisConversationStore(client)

		logger.Info("memory stores backed by redis")
	}

	if cfg.LLMAPIKey != "" {
		deps.LLM = llm.NewClient(pool, cfg.LLMBaseURL, cfg.LLMAPIKey)
	}

	if deps.Credentials != nil && (cfg.SlackChannel != "" || cfg.EmailTo != "") {
		deps.Interactions = interactions.NewAdapterChannel(adapterRegistry, deps.Credentials, interactions.Config{
			UserID:       cfg.InteractionUserID,
			SlackChannel: cfg.SlackChannel,
			EmailTo:      cfg.EmailTo,
		}, logger)
	} else {
		deps.Interactions = interactions.NewLogChannel(logger)
	}

	return executors.NewDefaultRegistry(deps), nil
}

func loadCredentials(path string) (adapters.StaticCredentials, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read credentials file: %w", err)
	}

	var credentials adapters.StaticCredentials
	if err := json.Unmarshal(raw, &credentials); err != nil {
		return nil, fmt.Errorf("parse credentials file %s: %w", path, err)
	}

	return credentials, nil
}
