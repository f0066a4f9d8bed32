package cmd

import cli "github.com/urfave/cli/v3"

// RegistryFlags returns the integration flags shared by every binary that
// builds an executor registry.
func RegistryFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "credentials-file",
			Usage:   "Path to the JSON credentials file for external adapters",
			Sources: cli.EnvVars("CREDENTIALS_FILE"),
		},
		&cli.StringFlag{
			Name:    "redis-url",
			Usage:   "Redis URL for memory node storage (in-process when unset)",
			Sources: cli.EnvVars("REDIS_URL"),
		},
		&cli.StringFlag{
			Name:    "llm-api-key",
			Usage:   "API key for the LLM backend (AI agent nodes disabled when unset)",
			Sources: cli.EnvVars("LLM_API_KEY"),
		},
		&cli.StringFlag{
			Name:    "llm-base-url",
			Usage:   "Base URL of the OpenAI-compatible LLM backend",
			Sources: cli.EnvVars("LLM_BASE_URL"),
		},
		&cli.StringFlag{
			Name:    "interaction-slack-channel",
			Usage:   "Slack channel for human-in-the-loop requests",
			Sources: cli.EnvVars("INTERACTION_SLACK_CHANNEL"),
		},
		&cli.StringFlag{
			Name:    "interaction-email-to",
			Usage:   "Email recipient for human-in-the-loop requests",
			Sources: cli.EnvVars("INTERACTION_EMAIL_TO"),
		},
		&cli.StringFlag{
			Name:    "interaction-user",
			Usage:   "User whose credentials deliver human-in-the-loop requests",
			Sources: cli.EnvVars("INTERACTION_USER"),
		},
	}
}

// RegistryConfigFromCommand reads the RegistryFlags values.
func RegistryConfigFromCommand(command *cli.Command) RegistryConfig {
	return RegistryConfig{
		CredentialsFile:   command.String("credentials-file"),
		RedisURL:          command.String("redis-url"),
		LLMAPIKey:         command.String("llm-api-key"),
		LLMBaseURL:        command.String("llm-base-url"),
		SlackChannel:      command.String("interaction-slack-channel"),
		EmailTo:           command.String("interaction-email-to"),
		InteractionUserID: command.String("interaction-user"),
	}
}
