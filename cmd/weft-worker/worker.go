// Package main provides the Weft worker: it arms cron triggers against the
// shared store and consumes engine lifecycle events for audit logging.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/weftworks/weft/pkg/engine"
	"github.com/weftworks/weft/pkg/eventbus"
	"github.com/weftworks/weft/pkg/events"
	"github.com/weftworks/weft/pkg/triggers/schedule"
)

type Worker struct {
	id        string
	logger    *slog.Logger
	engine    *engine.Engine
	scheduler *schedule.Scheduler
	eventBus  eventbus.EventBus
}

func NewWorker(id string, eng *engine.Engine, scheduler *schedule.Scheduler, eventBus eventbus.EventBus, logger *slog.Logger) *Worker {
	return &Worker{
		id:        id,
		logger:    logger.With("worker_id", id),
		engine:    eng,
		scheduler: scheduler,
		eventBus:  eventBus,
	}
}

// Start arms the scheduler, subscribes to the event bus and blocks until
// SIGINT or SIGTERM.
func (w *Worker) Start(ctx context.Context) error {
	w.registerHandlers()

	if err := w.eventBus.Subscribe(ctx); err != nil {
		return err
	}

	if err := w.scheduler.Start(ctx); err != nil {
		return err
	}

	w.logger.InfoContext(ctx, "Worker started", "armed_triggers", w.scheduler.Entries())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	<-sigChan
	w.logger.InfoContext(ctx, "Shutting down worker")
	w.scheduler.Stop()
	w.engine.Close()

	return nil
}

func (w *Worker) registerHandlers() {
	w.eventBus.Handle(events.ExecutionStartedEvent, func(ctx context.Context, event any) error {
		started, ok := event.(*events.ExecutionStarted)
		if !ok {
			return nil
		}

		w.logger.InfoContext(ctx, "execution started",
			"execution_id", started.ExecutionID,
			"workflow_id", started.WorkflowID,
			"workflow_name", started.WorkflowName,
			"total_nodes", started.TotalNodes)

		return nil
	})

	w.eventBus.Handle(events.ExecutionCompletedEvent, func(ctx context.Context, event any) error {
		completed, ok := event.(*events.ExecutionCompleted)
		if !ok {
			return nil
		}

		w.logger.InfoContext(ctx, "execution completed",
			"execution_id", completed.ExecutionID,
			"workflow_id", completed.WorkflowID,
			"duration_ms", completed.DurationMS,
			"completed_nodes", completed.CompletedNodes)

		return nil
	})

	w.eventBus.Handle(events.ExecutionFailedEvent, func(ctx context.Context, event any) error {
		failed, ok := event.(*events.ExecutionFailed)
		if !ok {
			return nil
		}

		w.logger.ErrorContext(ctx, "execution failed",
			"execution_id", failed.ExecutionID,
			"workflow_id", failed.WorkflowID,
			"error_node_id", failed.ErrorNodeID,
			"error", failed.ErrorMessage)

		return nil
	})

	w.eventBus.Handle(events.ExecutionPausedEvent, func(ctx context.Context, event any) error {
		paused, ok := event.(*events.ExecutionPaused)
		if !ok {
			return nil
		}

		w.logger.InfoContext(ctx, "execution paused",
			"execution_id", paused.ExecutionID,
			"workflow_id", paused.WorkflowID,
			"node_id", paused.NodeID,
			"interaction_id", paused.InteractionID)

		return nil
	})

	w.eventBus.Handle(events.NodeFailedEvent, func(ctx context.Context, event any) error {
		failed, ok := event.(*events.NodeFailed)
		if !ok {
			return nil
		}

		w.logger.WarnContext(ctx, "node failed",
			"execution_id", failed.ExecutionID,
			"node_id", failed.NodeID,
			"error_kind", failed.ErrorKind,
			"error", failed.ErrorMessage)

		return nil
	})
}
