package main

import (
	"context"
	"os"

	cli "github.com/urfave/cli/v3"
	"go.opentelemetry.io/otel/trace"

	"github.com/weftworks/weft/pkg/cmd"
	"github.com/weftworks/weft/pkg/engine"
	"github.com/weftworks/weft/pkg/log"
	"github.com/weftworks/weft/pkg/mapping"
	"github.com/weftworks/weft/pkg/otelhelper"
	"github.com/weftworks/weft/pkg/specs"
	"github.com/weftworks/weft/pkg/validation"
)

const defaultPort = 9091

func main() {
	command := &cli.Command{
		Name:                  "weft-api",
		Usage:                 "Serve the workflow and execution API",
		EnableShellCompletion: true,
		Flags: append([]cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus provider (kafka, memory)",
				Value:   "memory",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "kafka-brokers",
				Usage:   "Comma separated Kafka broker list",
				Sources: cli.EnvVars("KAFKA_BROKERS"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
			&cli.BoolFlag{
				Name:    "tracing",
				Usage:   "Export traces over OTLP (endpoint from OTEL_EXPORTER_* env vars)",
				Sources: cli.EnvVars("TRACING_ENABLED"),
			},
		}, cmd.RegistryFlags()...),
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger := log.WithModule("api")
			logger.InfoContext(ctx, "Initializing Weft API")

			var tracer trace.Tracer

			if command.Bool("tracing") {
				var err error

				tracer, err = otelhelper.NewTracer(ctx, "weft-api")
				if err != nil {
					return err
				}
			}

			store, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			if err != nil {
				return err
			}

			defer func() {
				if err := store.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			eventBus, err := cmd.NewEventBus(command.String("event-bus"), command.String("kafka-brokers"), "weft-api", logger)
			if err != nil {
				return err
			}

			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			registry, err := cmd.NewExecutorRegistry(logger, cmd.RegistryConfigFromCommand(command))
			if err != nil {
				return err
			}

			eng := engine.New(engine.Options{
				Executors: registry,
				Validator: validation.NewValidator(specs.NewDefaultRegistry()),
				Mapping:   mapping.NewProcessor(mapping.NewFunctionRegistry()),
				Store:     store,
				Publisher: eventBus,
				Logger:    logger,
				Tracer:    tracer,
			})
			defer eng.Close()

			api := NewAPI(logger, store, eng)

			if err := api.Start(command.Int("port")); err != nil {
				logger.ErrorContext(ctx, "API server stopped", "error", err)

				return err
			}

			return nil
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}
