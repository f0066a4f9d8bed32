// Package engine drives workflow executions through their lifecycle:
// validate, plan, run nodes in dependency order, pause for human input,
// resume, cancel. Every state transition is written through persistence
// and published on the event bus.
package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/semaphore"

	"github.com/weftworks/weft/pkg/events"
	"github.com/weftworks/weft/pkg/executors"
	"github.com/weftworks/weft/pkg/log"
	"github.com/weftworks/weft/pkg/mapping"
	"github.com/weftworks/weft/pkg/models"
	"github.com/weftworks/weft/pkg/otelhelper"
	"github.com/weftworks/weft/pkg/persistence"
	"github.com/weftworks/weft/pkg/planner"
	"github.com/weftworks/weft/pkg/validation"
)

const (
	defaultMaxConcurrent  = 64
	defaultSweepInterval  = time.Second
	defaultPauseTimeout   = 24 * time.Hour
	paramResponseTimeout  = "response_timeout"
	internalFailureDetail = "internal engine failure"
)

// Options configures a new Engine. Executors, Validator, Mapping and Store
// are required; the rest default sensibly.
type Options struct {
	Executors *executors.Registry
	Validator *validation.Validator
	Mapping   *mapping.Processor
	Store     persistence.Persistence
	Publisher events.Publisher
	Logger    *slog.Logger
	Tracer    trace.Tracer

	// MaxConcurrent bounds how many executions run node code at once.
	MaxConcurrent int64
	// SweepInterval is how often the timeout sweep scans paused executions.
	SweepInterval time.Duration
	// DefaultPauseTimeout applies when a pausing node does not configure
	// its own response_timeout.
	DefaultPauseTimeout time.Duration
}

// Engine owns execution state. One engine instance may drive many
// executions concurrently; each execution's nodes run sequentially in
// planned order.
type Engine struct {
	registry  *executors.Registry
	validator *validation.Validator
	mapper    *mapping.Processor
	store     persistence.Persistence
	publisher events.Publisher
	logger    *slog.Logger
	tracer    trace.Tracer
	sem       *semaphore.Weighted

	sweepInterval time.Duration
	pauseTimeout  time.Duration

	mu     sync.Mutex
	active map[string]*executionState

	done    chan struct{}
	stopped sync.Once
}

// executionState is the in-memory side of one non-terminal execution. The
// persisted ExecutionRecord is the durable snapshot; this adds what the run
// loop needs between node invocations.
type executionState struct {
	mu       sync.Mutex
	workflow *models.Workflow
	record   *models.ExecutionRecord
	plan     []string
	next     int // plan index of the next node to run
	results  map[string]*models.NodeExecutionResult
	execCtx  models.ExecutionContext
	trigger  map[string]any
	deadline time.Time // response deadline while PAUSED
	cancel   bool      // requested while RUNNING, honored between nodes
}

// New builds an engine and starts its timeout sweep.
func New(opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = log.WithModule("engine")
	}

	tracer := opts.Tracer
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("engine")
	}

	maxConcurrent := opts.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = defaultMaxConcurrent
	}

	sweepInterval := opts.SweepInterval
	if sweepInterval <= 0 {
		sweepInterval = defaultSweepInterval
	}

	pauseTimeout := opts.DefaultPauseTimeout
	if pauseTimeout <= 0 {
		pauseTimeout = defaultPauseTimeout
	}

	e := &Engine{
		registry:      opts.Executors,
		validator:     opts.Validator,
		mapper:        opts.Mapping,
		store:         opts.Store,
		publisher:     opts.Publisher,
		logger:        logger,
		tracer:        tracer,
		sem:           semaphore.NewWeighted(maxConcurrent),
		sweepInterval: sweepInterval,
		pauseTimeout:  pauseTimeout,
		active:        make(map[string]*executionState),
		done:          make(chan struct{}),
	}

	go e.sweepLoop()

	return e
}

// Close stops the timeout sweep. In-flight executions finish on their own.
func (e *Engine) Close() {
	e.stopped.Do(func() { close(e.done) })
}

// ValidateWorkflow runs static validation without executing anything.
func (e *Engine) ValidateWorkflow(w *models.Workflow) *validation.Result {
	return e.validator.Validate(w)
}

// SubmitExecution validates the workflow, persists it, and runs it to its
// first resting point. The returned record is terminal or PAUSED. Validation
// failure surfaces as *ValidationFailedError before any side effect.
func (e *Engine) SubmitExecution(ctx context.Context, workflow *models.Workflow, triggerData map[string]any, userID string) (*models.ExecutionRecord, error) {
	if result := e.validator.Validate(workflow); !result.Valid() {
		return nil, &ValidationFailedError{Result: result}
	}

	plan, err := planner.Plan(workflow)
	if err != nil {
		return nil, err
	}

	if err := e.store.SaveWorkflow(ctx, workflow); err != nil {
		return nil, persistence.NewStoreError("save workflow", workflow.ID, err)
	}

	record := &models.ExecutionRecord{
		ID:         uuid.NewString(),
		WorkflowID: workflow.ID,
		UserID:     userID,
		Status:     models.ExecutionStatusNew,
		TotalNodes: len(plan),
	}

	execCtx := models.NewExecutionContext(workflow.ID, record.ID, workflow.StaticData)
	if userID != "" {
		execCtx.Metadata["user_id"] = userID
	}

	st := &executionState{
		workflow: workflow,
		record:   record,
		plan:     plan,
		results:  make(map[string]*models.NodeExecutionResult),
		execCtx:  execCtx,
		trigger:  triggerData,
	}

	e.mu.Lock()
	e.active[record.ID] = st
	e.mu.Unlock()

	if err := e.sem.Acquire(ctx, 1); err != nil {
		e.forget(record.ID)
		return nil, err
	}
	defer e.sem.Release(1)

	st.mu.Lock()
	record.Status = models.ExecutionStatusRunning
	record.StartedAt = time.Now().UTC()
	st.mu.Unlock()

	if err := e.persist(ctx, st); err != nil {
		e.forget(record.ID)
		return record, err
	}

	e.publish(ctx, events.NewExecutionStarted(record, workflow.Name, triggerData))
	e.logger.Info("execution started",
		"execution_id", record.ID, "workflow_id", workflow.ID, "nodes", len(plan))

	e.drive(ctx, st, nil)

	return record, nil
}

// ResumeExecution delivers an out-of-band payload to a PAUSED execution and
// runs it to its next resting point. Only the first resume for a given pause
// succeeds; any later call sees a non-PAUSED status and gets a *StateError.
func (e *Engine) ResumeExecution(ctx context.Context, executionID string, payload map[string]any) (*models.ExecutionRecord, error) {
	return e.resume(ctx, executionID, payload, false)
}

func (e *Engine) resume(ctx context.Context, executionID string, payload map[string]any, timedOut bool) (*models.ExecutionRecord, error) {
	st, err := e.stateFor(ctx, executionID)
	if err != nil {
		return nil, err
	}

	st.mu.Lock()
	if st.record.Status != models.ExecutionStatusPaused {
		status := st.record.Status
		st.mu.Unlock()

		return nil, &StateError{ExecutionID: executionID, Status: status, Action: "resume"}
	}

	st.record.Status = models.ExecutionStatusRunning
	st.deadline = time.Time{}
	st.mu.Unlock()

	if err := e.sem.Acquire(ctx, 1); err != nil {
		// Put the execution back the way we found it.
		st.mu.Lock()
		st.record.Status = models.ExecutionStatusPaused
		st.mu.Unlock()

		return nil, err
	}
	defer e.sem.Release(1)

	if err := e.persist(ctx, st); err != nil {
		e.forget(executionID)
		return st.record, err
	}

	e.publish(ctx, events.NewExecutionResumed(st.record, timedOut))
	e.logger.Info("execution resumed",
		"execution_id", executionID, "timed_out", timedOut)

	e.drive(ctx, st, payload)

	return st.record, nil
}

// CancelExecution cancels a RUNNING or PAUSED execution. A paused execution
// cancels immediately; a running one finishes its in-flight node first.
func (e *Engine) CancelExecution(ctx context.Context, executionID string) (*models.ExecutionRecord, error) {
	st, err := e.stateFor(ctx, executionID)
	if err != nil {
		return nil, err
	}

	st.mu.Lock()
	switch st.record.Status {
	case models.ExecutionStatusPaused:
		now := time.Now().UTC()
		st.record.Status = models.ExecutionStatusCancelled
		st.record.CompletedAt = &now
		st.record.CurrentNodeID = ""
		st.mu.Unlock()

		if err := e.persist(ctx, st); err != nil {
			return st.record, err
		}

		e.publish(ctx, events.NewExecutionCancelled(st.record))
		e.forget(executionID)
	case models.ExecutionStatusRunning, models.ExecutionStatusNew:
		st.cancel = true
		st.mu.Unlock()
	default:
		status := st.record.Status
		st.mu.Unlock()

		return nil, &StateError{ExecutionID: executionID, Status: status, Action: "cancel"}
	}

	e.logger.Info("execution cancellation requested", "execution_id", executionID)

	return st.record, nil
}

// GetExecutionStatus returns the current record snapshot for an execution.
func (e *Engine) GetExecutionStatus(ctx context.Context, executionID string) (*models.ExecutionRecord, error) {
	e.mu.Lock()
	st, ok := e.active[executionID]
	e.mu.Unlock()

	if ok {
		st.mu.Lock()
		defer st.mu.Unlock()

		return st.record.Snapshot(), nil
	}

	return e.store.ExecutionByID(ctx, executionID)
}

// stateFor returns the live state for an execution, rehydrating it from
// persistence when the engine restarted while the execution was paused.
func (e *Engine) stateFor(ctx context.Context, executionID string) (*executionState, error) {
	e.mu.Lock()
	st, ok := e.active[executionID]
	e.mu.Unlock()

	if ok {
		return st, nil
	}

	record, err := e.store.ExecutionByID(ctx, executionID)
	if err != nil {
		return nil, err
	}

	if record.Status != models.ExecutionStatusPaused {
		return nil, &StateError{ExecutionID: executionID, Status: record.Status, Action: "resume"}
	}

	workflow, err := e.store.WorkflowByID(ctx, record.WorkflowID)
	if err != nil {
		return nil, err
	}

	plan, err := planner.Plan(workflow)
	if err != nil {
		return nil, err
	}

	st = &executionState{
		workflow: workflow,
		record:   record,
		plan:     plan,
		results:  make(map[string]*models.NodeExecutionResult),
		execCtx:  models.NewExecutionContext(workflow.ID, record.ID, workflow.StaticData),
	}
	if record.UserID != "" {
		st.execCtx.Metadata["user_id"] = record.UserID
	}

	// Latest result per node wins; iteration entries precede the aggregate.
	for _, res := range record.NodeExecutions {
		st.results[res.NodeID] = res
	}

	for i, nodeID := range plan {
		if nodeID == record.CurrentNodeID {
			st.next = i
			break
		}
	}

	e.mu.Lock()
	if existing, ok := e.active[executionID]; ok {
		st = existing
	} else {
		e.active[executionID] = st
	}
	e.mu.Unlock()

	return st, nil
}

func (e *Engine) forget(executionID string) {
	e.mu.Lock()
	delete(e.active, executionID)
	e.mu.Unlock()
}

// persist writes the current record snapshot. A failing store is an
// unrecoverable fault: the execution converts to ERROR with a generic
// message and a best-effort final save.
func (e *Engine) persist(ctx context.Context, st *executionState) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	if err := e.store.SaveExecution(ctx, st.record); err != nil {
		e.logger.Error("persistence failure",
			"execution_id", st.record.ID, "error", err)

		if !st.record.Status.Terminal() {
			now := time.Now().UTC()
			st.record.Status = models.ExecutionStatusError
			st.record.ErrorMessage = internalFailureDetail
			st.record.CompletedAt = &now
			_ = e.store.SaveExecution(ctx, st.record)
		}

		return persistence.NewStoreError("save execution", st.record.ID, err)
	}

	return nil
}

func (e *Engine) publish(ctx context.Context, event events.Event) {
	if e.publisher == nil {
		return
	}

	if err := e.publisher.Publish(ctx, event); err != nil {
		e.logger.Warn("event publish failed",
			"event_type", event.GetType(), "error", err)
	}
}

func (e *Engine) executionAttrs(st *executionState) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(otelhelper.WorkflowIDKey, st.workflow.ID),
		attribute.String(otelhelper.WorkflowNameKey, st.workflow.Name),
		attribute.String(otelhelper.ExecutionIDKey, st.record.ID),
	}
}
