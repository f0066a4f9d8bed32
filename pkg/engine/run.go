package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"dario.cat/mergo"
	"go.opentelemetry.io/otel/attribute"

	"github.com/weftworks/weft/pkg/events"
	"github.com/weftworks/weft/pkg/executors"
	"github.com/weftworks/weft/pkg/models"
	"github.com/weftworks/weft/pkg/otelhelper"
)

// drive runs the execution from its current plan position until it reaches
// a terminal status or pauses again. resumePayload, when non-nil, is handed
// to the first node only.
func (e *Engine) drive(ctx context.Context, st *executionState, resumePayload map[string]any) {
	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "engine.drive", e.executionAttrs(st)...)
	defer span.End()

	if st.workflow.Settings.TimeoutSeconds > 0 {
		elapsed := time.Since(st.record.StartedAt)
		remaining := time.Duration(st.workflow.Settings.TimeoutSeconds)*time.Second - elapsed

		if remaining <= 0 {
			e.failExecution(ctx, st, "", "execution timed out")
			return
		}

		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, remaining)
		defer cancel()
	}

	for st.next < len(st.plan) {
		st.mu.Lock()
		cancelled := st.cancel
		st.mu.Unlock()

		if cancelled {
			e.cancelExecution(ctx, st)
			return
		}

		if err := ctx.Err(); err != nil {
			e.failExecution(ctx, st, "", "execution timed out")
			return
		}

		node := st.workflow.NodeByID(st.plan[st.next])
		if node == nil {
			e.failExecution(ctx, st, st.plan[st.next], "planned node missing from workflow")
			return
		}

		resting := e.runNode(ctx, st, node, resumePayload)
		resumePayload = nil

		if resting {
			return
		}
	}

	e.completeExecution(ctx, st)
}

// runNode executes one node, records its result, and advances the plan.
// It returns true when the execution reached a resting point (paused or
// terminal) and the drive loop must stop.
func (e *Engine) runNode(ctx context.Context, st *executionState, node *models.Node, resumePayload map[string]any) bool {
	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "engine.node",
		append(e.executionAttrs(st),
			attribute.String(otelhelper.NodeIDKey, node.ID),
			attribute.String(otelhelper.NodeTypeKey, string(node.Type)),
			attribute.String(otelhelper.NodeSubtypeKey, node.Subtype))...)
	defer span.End()

	st.mu.Lock()
	st.record.CurrentNodeID = node.ID
	st.mu.Unlock()

	if node.Disabled {
		e.recordSkip(ctx, st, node)
		return false
	}

	input, live, nodeErr := e.resolveInput(st, node, resumePayload != nil)
	if nodeErr != nil {
		otelhelper.SetError(span, nodeErr)
		return e.recordFailure(ctx, st, node, nodeErr, time.Now().UTC())
	}

	if !live {
		e.recordSkip(ctx, st, node)
		return false
	}

	outcome, nodeErr, startedAt := e.executeWithRetry(ctx, st, node, input, resumePayload)
	completedAt := time.Now().UTC()

	if nodeErr != nil {
		otelhelper.SetError(span, nodeErr)
		return e.recordFailure(ctx, st, node, nodeErr, startedAt)
	}

	switch outcome.StatusOrDefault() {
	case models.NodeStatusPaused:
		e.pauseExecution(ctx, st, node, outcome, startedAt, completedAt)
		return true
	case models.NodeStatusSkipped:
		e.recordSkip(ctx, st, node)
		return false
	default:
		e.recordSuccess(ctx, st, node, outcome, startedAt, completedAt)
		return false
	}
}

// executeWithRetry dispatches the node and applies the workflow retry
// policy. Only temporary and rate-limited failures retry; only the final
// attempt is recorded.
func (e *Engine) executeWithRetry(ctx context.Context, st *executionState, node *models.Node, input map[string]any, resumePayload map[string]any) (*executors.Outcome, *models.NodeError, time.Time) {
	executor, err := e.registry.ExecutorFor(node)
	if err != nil {
		return nil, asNodeError(err), time.Now().UTC()
	}

	attempts := 1 + st.workflow.Settings.MaxRetries
	delay := time.Duration(st.workflow.Settings.RetryDelayMS) * time.Millisecond

	var (
		lastErr   *models.NodeError
		startedAt time.Time
	)

	for attempt := 1; attempt <= attempts; attempt++ {
		startedAt = time.Now().UTC()

		outcome, execErr := executor.Execute(ctx, executors.Request{
			Node:          node,
			Input:         input,
			Execution:     st.execCtx,
			ResumePayload: resumePayload,
		})
		if execErr == nil {
			return outcome, nil, startedAt
		}

		lastErr = asNodeError(execErr)
		if !lastErr.Kind.Retryable() || attempt == attempts {
			break
		}

		e.logger.Warn("node attempt failed, retrying",
			"execution_id", st.record.ID, "node_id", node.ID,
			"attempt", attempt, "kind", lastErr.Kind, "error", lastErr.Message)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, lastErr, startedAt
		}
	}

	return nil, lastErr, startedAt
}

// resolveInput aggregates the node's input from its live incoming MAIN
// connections. A connection is live when its source completed successfully
// and left on the port the connection is attached to. Payloads merge left
// to right in source declaration order, later connections winning.
func (e *Engine) resolveInput(st *executionState, node *models.Node, resuming bool) (map[string]any, bool, *models.NodeError) {
	incoming := st.workflow.MainConnectionsTo(node.Name)

	if len(incoming) == 0 {
		if node.IsTrigger() {
			return st.trigger, true, nil
		}

		return nil, true, nil
	}

	// A resumed node re-runs with whatever input it paused on; its sources
	// have not changed since.
	merged := make(map[string]any)
	live := false

	for _, ref := range incoming {
		result, ok := st.results[ref.Source.ID]
		if !ok || result.Status != models.NodeStatusSuccess {
			continue
		}

		if result.OutputPortOrDefault() != ref.Connection.SourcePortOrDefault() {
			continue
		}

		live = true

		payload := result.OutputData
		if ref.Connection.Mapping != nil {
			transformed, err := e.mapper.Transform(payload, ref.Connection.Mapping, st.execCtx)
			if err != nil {
				return nil, false, &models.NodeError{
					Kind: models.ErrorKindPermanent,
					Message: fmt.Sprintf("mapping on connection from %s failed: %v",
						ref.Source.Name, err),
				}
			}

			payload = transformed
		}

		if err := mergo.Merge(&merged, payload, mergo.WithOverride); err != nil {
			return nil, false, &models.NodeError{
				Kind:    models.ErrorKindInternal,
				Message: fmt.Sprintf("merging inputs for %s failed: %v", node.Name, err),
			}
		}
	}

	if !live && !resuming {
		return nil, false, nil
	}

	return merged, true, nil
}

func (e *Engine) recordSuccess(ctx context.Context, st *executionState, node *models.Node, outcome *executors.Outcome, startedAt, completedAt time.Time) {
	st.mu.Lock()

	for _, iteration := range outcome.Iterations {
		st.record.NodeExecutions = append(st.record.NodeExecutions, &models.NodeExecutionResult{
			NodeID:          node.ID,
			Status:          models.NodeStatusSuccess,
			OutputData:      iteration,
			StartedAt:       startedAt,
			CompletedAt:     completedAt,
			ExecutionTimeMS: completedAt.Sub(startedAt).Milliseconds(),
		})
	}

	result := &models.NodeExecutionResult{
		NodeID:          node.ID,
		Status:          models.NodeStatusSuccess,
		OutputData:      outcome.OutputData,
		OutputPort:      outcome.OutputPort,
		StartedAt:       startedAt,
		CompletedAt:     completedAt,
		ExecutionTimeMS: completedAt.Sub(startedAt).Milliseconds(),
	}

	st.record.NodeExecutions = append(st.record.NodeExecutions, result)
	st.record.CompletedNodes++
	st.results[node.ID] = result
	st.next++
	st.mu.Unlock()

	if err := e.persist(ctx, st); err != nil {
		return
	}

	e.publish(ctx, events.NewNodeCompleted(st.workflow.ID, st.record.ID, result))
	e.logger.Debug("node completed",
		"execution_id", st.record.ID, "node_id", node.ID,
		"output_port", result.OutputPortOrDefault(),
		"duration_ms", result.ExecutionTimeMS)
}

func (e *Engine) recordSkip(ctx context.Context, st *executionState, node *models.Node) {
	now := time.Now().UTC()
	result := &models.NodeExecutionResult{
		NodeID:      node.ID,
		Status:      models.NodeStatusSkipped,
		StartedAt:   now,
		CompletedAt: now,
	}

	st.mu.Lock()
	st.record.NodeExecutions = append(st.record.NodeExecutions, result)
	st.record.CompletedNodes++
	st.results[node.ID] = result
	st.next++
	st.mu.Unlock()

	if err := e.persist(ctx, st); err != nil {
		return
	}

	e.publish(ctx, events.NewNodeCompleted(st.workflow.ID, st.record.ID, result))
	e.logger.Debug("node skipped",
		"execution_id", st.record.ID, "node_id", node.ID)
}

// recordFailure records a terminal node failure and applies the node's
// error policy. It returns true when the whole execution stops.
func (e *Engine) recordFailure(ctx context.Context, st *executionState, node *models.Node, nodeErr *models.NodeError, startedAt time.Time) bool {
	completedAt := time.Now().UTC()
	result := &models.NodeExecutionResult{
		NodeID:          node.ID,
		Status:          models.NodeStatusError,
		Error:           nodeErr,
		StartedAt:       startedAt,
		CompletedAt:     completedAt,
		ExecutionTimeMS: completedAt.Sub(startedAt).Milliseconds(),
	}

	st.mu.Lock()
	st.record.NodeExecutions = append(st.record.NodeExecutions, result)
	st.results[node.ID] = result
	st.next++
	st.mu.Unlock()

	e.publish(ctx, events.NewNodeFailed(st.workflow.ID, st.record.ID, result))
	e.logger.Error("node failed",
		"execution_id", st.record.ID, "node_id", node.ID,
		"kind", nodeErr.Kind, "error", nodeErr.Message)

	if node.ErrorPolicyOrDefault() == models.ErrorPolicyContinue {
		if err := e.persist(ctx, st); err != nil {
			return true
		}

		return false
	}

	e.failExecution(ctx, st, node.ID, nodeErr.Message)

	return true
}

func (e *Engine) pauseExecution(ctx context.Context, st *executionState, node *models.Node, outcome *executors.Outcome, startedAt, completedAt time.Time) {
	result := &models.NodeExecutionResult{
		NodeID:          node.ID,
		Status:          models.NodeStatusPaused,
		StartedAt:       startedAt,
		CompletedAt:     completedAt,
		ExecutionTimeMS: completedAt.Sub(startedAt).Milliseconds(),
	}

	st.mu.Lock()
	st.record.Status = models.ExecutionStatusPaused
	st.record.CurrentNodeID = node.ID
	st.record.NodeExecutions = append(st.record.NodeExecutions, result)
	st.deadline = time.Now().UTC().Add(responseTimeout(node, e.pauseTimeout))
	st.mu.Unlock()

	if err := e.persist(ctx, st); err != nil {
		return
	}

	e.publish(ctx, events.NewExecutionPaused(st.record, outcome.InteractionID))
	e.logger.Info("execution paused",
		"execution_id", st.record.ID, "node_id", node.ID,
		"interaction_id", outcome.InteractionID)
}

func (e *Engine) completeExecution(ctx context.Context, st *executionState) {
	ctx = context.WithoutCancel(ctx)
	now := time.Now().UTC()

	st.mu.Lock()
	st.record.Status = models.ExecutionStatusSuccess
	st.record.CompletedAt = &now
	st.record.CurrentNodeID = ""
	st.mu.Unlock()

	if err := e.persist(ctx, st); err != nil {
		return
	}

	e.publish(ctx, events.NewExecutionCompleted(st.record))
	e.logger.Info("execution completed",
		"execution_id", st.record.ID,
		"completed_nodes", st.record.CompletedNodes,
		"total_nodes", st.record.TotalNodes)
	e.forget(st.record.ID)
}

func (e *Engine) failExecution(ctx context.Context, st *executionState, nodeID, message string) {
	// The execution deadline may already have fired; the terminal write
	// must still go through.
	ctx = context.WithoutCancel(ctx)
	now := time.Now().UTC()

	st.mu.Lock()
	st.record.Status = models.ExecutionStatusError
	st.record.ErrorMessage = message
	st.record.ErrorNodeID = nodeID
	st.record.CompletedAt = &now
	st.mu.Unlock()

	if err := e.persist(ctx, st); err != nil {
		e.forget(st.record.ID)
		return
	}

	e.publish(ctx, events.NewExecutionFailed(st.record))
	e.logger.Error("execution failed",
		"execution_id", st.record.ID, "node_id", nodeID, "error", message)
	e.forget(st.record.ID)
}

func (e *Engine) cancelExecution(ctx context.Context, st *executionState) {
	ctx = context.WithoutCancel(ctx)
	now := time.Now().UTC()

	st.mu.Lock()
	st.record.Status = models.ExecutionStatusCancelled
	st.record.CompletedAt = &now
	st.record.CurrentNodeID = ""
	st.mu.Unlock()

	if err := e.persist(ctx, st); err != nil {
		e.forget(st.record.ID)
		return
	}

	e.publish(ctx, events.NewExecutionCancelled(st.record))
	e.logger.Info("execution cancelled", "execution_id", st.record.ID)
	e.forget(st.record.ID)
}

// responseTimeout reads the node's response_timeout parameter in seconds.
func responseTimeout(node *models.Node, fallback time.Duration) time.Duration {
	raw, ok := node.Parameters[paramResponseTimeout]
	if !ok {
		return fallback
	}

	switch v := raw.(type) {
	case float64:
		if v > 0 {
			return time.Duration(v * float64(time.Second))
		}
	case int:
		if v > 0 {
			return time.Duration(v) * time.Second
		}
	}

	return fallback
}

func asNodeError(err error) *models.NodeError {
	var nodeErr *models.NodeError
	if errors.As(err, &nodeErr) {
		return nodeErr
	}

	return &models.NodeError{Kind: models.ErrorKindInternal, Message: err.Error()}
}
