package main

import (
	"context"
	"os"

	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"
	"go.opentelemetry.io/otel/trace"

	"github.com/weftworks/weft/pkg/cmd"
	"github.com/weftworks/weft/pkg/engine"
	"github.com/weftworks/weft/pkg/log"
	"github.com/weftworks/weft/pkg/mapping"
	"github.com/weftworks/weft/pkg/otelhelper"
	"github.com/weftworks/weft/pkg/specs"
	"github.com/weftworks/weft/pkg/triggers/schedule"
	"github.com/weftworks/weft/pkg/validation"
)

func main() {
	command := &cli.Command{
		Name:                  "weft-worker",
		Usage:                 "Run scheduled workflows and consume lifecycle events",
		EnableShellCompletion: true,
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:    "worker-id",
				Aliases: []string{"id"},
				Usage:   "Custom worker ID (auto-generated if not provided)",
				Sources: cli.EnvVars("WORKER_ID"),
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

			workerID := command.String("worker-id")
			if workerID == "" {
				workerID = "worker-" + uuid.NewString()[:8]
			}

			logger := log.WithModule("worker")
			logger.InfoContext(ctx, "Initializing Weft worker", "worker_id", workerID)

			var tracer trace.Tracer

			if command.Bool("tracing") {
				var err error

				tracer, err = otelhelper.NewTracer(ctx, "weft-worker")
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

			eventBus, err := cmd.NewEventBus(command.String("event-bus"), command.String("kafka-brokers"), "weft-worker", logger)
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

			scheduler := schedule.NewScheduler(store, eng, logger)

			worker := NewWorker(workerID, eng, scheduler, eventBus, logger)

			return worker.Start(ctx)
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}
