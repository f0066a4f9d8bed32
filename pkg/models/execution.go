package models

import (
	"maps"
	"time"
)

// ExecutionStatus is the lifecycle state of a whole execution.
// NEW → RUNNING → {SUCCESS, ERROR, CANCELLED, PAUSED}; PAUSED → RUNNING.
type ExecutionStatus string

const (
	ExecutionStatusNew       ExecutionStatus = "NEW"
	ExecutionStatusRunning   ExecutionStatus = "RUNNING"
	ExecutionStatusSuccess   ExecutionStatus = "SUCCESS"
	ExecutionStatusError     ExecutionStatus = "ERROR"
	ExecutionStatusCancelled ExecutionStatus = "CANCELLED"
	ExecutionStatusPaused    ExecutionStatus = "PAUSED"
)

// Terminal reports whether no further transitions are legal from s.
// PAUSED is non-terminal: it awaits a resume or a timeout sweep.
func (s ExecutionStatus) Terminal() bool {
	return s == ExecutionStatusSuccess || s == ExecutionStatusError || s == ExecutionStatusCancelled
}

// NodeStatus is the outcome of one node invocation.
type NodeStatus string

const (
	NodeStatusSuccess   NodeStatus = "SUCCESS"
	NodeStatusError     NodeStatus = "ERROR"
	NodeStatusSkipped   NodeStatus = "SKIPPED"
	NodeStatusCancelled NodeStatus = "CANCELLED"
	NodeStatusPaused    NodeStatus = "PAUSED"
)

// ErrorKind classifies a node failure for the retry-policy evaluator.
// Only Temporary and RateLimited failures are retried.
type ErrorKind string

const (
	ErrorKindAuthentication ErrorKind = "authentication"
	ErrorKindRateLimited    ErrorKind = "rate_limited"
	ErrorKindTemporary      ErrorKind = "temporary"
	ErrorKindPermanent      ErrorKind = "permanent"
	ErrorKindInternal       ErrorKind = "internal"
)

// Retryable reports whether a failure of this kind may be retried.
func (k ErrorKind) Retryable() bool {
	return k == ErrorKindTemporary || k == ErrorKindRateLimited
}

// NodeError is the structured error recorded on a failed node result.
type NodeError struct {
	Message string    `json:"message"`
	Kind    ErrorKind `json:"kind"`
}

func (e *NodeError) Error() string {
	return e.Message
}

// NodeExecutionResult is the immutable record of one node invocation,
// appended to the execution's ordered history.
type NodeExecutionResult struct {
	NodeID          string         `json:"node_id"`
	Status          NodeStatus     `json:"status"`
	OutputData      map[string]any `json:"output_data,omitempty"`
	OutputPort      string         `json:"output_port,omitempty"` // branch port selected by flow/HIL nodes
	Error           *NodeError     `json:"error,omitempty"`
	StartedAt       time.Time      `json:"started_at"`
	CompletedAt     time.Time      `json:"completed_at"`
	ExecutionTimeMS int64          `json:"execution_time_ms"`
}

// OutputPortOrDefault returns the port the result left on, defaulting to "main".
func (r *NodeExecutionResult) OutputPortOrDefault() string {
	if r.OutputPort == "" {
		return PortMain
	}

	return r.OutputPort
}

// ExecutionRecord is the engine-owned state of one execution. It is created
// at submission (NEW) and mutated only by the engine's state transitions;
// once Status is terminal the record never changes again.
type ExecutionRecord struct {
	ID             string                 `json:"id"          validate:"required"`
	WorkflowID     string                 `json:"workflow_id" validate:"required"`
	UserID         string                 `json:"user_id,omitempty"`
	Status         ExecutionStatus        `json:"status"`
	StartedAt      time.Time              `json:"started_at,omitempty"`
	CompletedAt    *time.Time             `json:"completed_at,omitempty"`
	CurrentNodeID  string                 `json:"current_node_id,omitempty"` // set while RUNNING or PAUSED
	TotalNodes     int                    `json:"total_nodes"`
	CompletedNodes int                    `json:"completed_nodes"`
	NodeExecutions []*NodeExecutionResult `json:"node_executions,omitempty"`
	ErrorMessage   string                 `json:"error_message,omitempty"`
	ErrorNodeID    string                 `json:"error_node_id,omitempty"`
}

// Snapshot returns a copy of the record detached from the engine's live
// state. Node results and output payloads are copied too, so the caller can
// read the snapshot while the execution keeps running.
func (r *ExecutionRecord) Snapshot() *ExecutionRecord {
	out := *r

	if r.CompletedAt != nil {
		completed := *r.CompletedAt
		out.CompletedAt = &completed
	}

	if len(r.NodeExecutions) > 0 {
		out.NodeExecutions = make([]*NodeExecutionResult, len(r.NodeExecutions))
		for i, res := range r.NodeExecutions {
			copied := *res
			copied.OutputData = maps.Clone(res.OutputData)
			out.NodeExecutions[i] = &copied
		}
	}

	return &out
}

// ResultFor returns the latest recorded result for a node, or nil. A node
// that paused and later completed carries two entries; the final one wins.
func (r *ExecutionRecord) ResultFor(nodeID string) *NodeExecutionResult {
	for i := len(r.NodeExecutions) - 1; i >= 0; i-- {
		if r.NodeExecutions[i].NodeID == nodeID {
			return r.NodeExecutions[i]
		}
	}

	return nil
}

// ExecutionContext is the per-execution immutable bag handed to mapping and
// template resolution. CurrentTime is frozen at context creation so that
// {{current_time}} resolves identically across the whole execution.
type ExecutionContext struct {
	WorkflowID  string         `json:"workflow_id"`
	ExecutionID string         `json:"execution_id"`
	CurrentTime time.Time      `json:"current_time"`
	Variables   map[string]any `json:"variables,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// NewExecutionContext freezes an execution context for the given execution.
func NewExecutionContext(workflowID, executionID string, variables map[string]any) ExecutionContext {
	return ExecutionContext{
		WorkflowID:  workflowID,
		ExecutionID: executionID,
		CurrentTime: time.Now().UTC(),
		Variables:   variables,
		Metadata:    make(map[string]any),
	}
}
