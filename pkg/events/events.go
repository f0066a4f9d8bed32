// Package events defines the lifecycle notifications the engine emits while
// driving an execution. Consumers (persistence mirrors, dashboards, audit
// trails) subscribe through the event bus; the engine never waits on them.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/weftworks/weft/pkg/models"
)

type EventType string

// Kafka topics.
const (
	ExecutionTopic = "weft.executions"
	NodeTopic      = "weft.nodes"
)

const (
	EventKeyMetadataKey  = "key"
	EventTypeMetadataKey = "event_type"
)

const (
	ExecutionStartedEvent   EventType = "execution.started"
	ExecutionCompletedEvent EventType = "execution.completed"
	ExecutionFailedEvent    EventType = "execution.failed"
	ExecutionPausedEvent    EventType = "execution.paused"
	ExecutionResumedEvent   EventType = "execution.resumed"
	ExecutionCancelledEvent EventType = "execution.cancelled"
	ExecutionTimedOutEvent  EventType = "execution.timed_out"

	NodeCompletedEvent EventType = "node.completed"
	NodeFailedEvent    EventType = "node.failed"
)

// Event is anything the engine can publish.
type Event interface {
	GetType() EventType
	Key() string
}

// Publisher delivers events to whatever bus the process is wired with.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// BaseEvent carries the fields every event shares.
type BaseEvent struct {
	ID          string    `json:"id"`
	Type        EventType `json:"type"`
	Timestamp   time.Time `json:"timestamp"`
	WorkflowID  string    `json:"workflow_id"`
	ExecutionID string    `json:"execution_id"`
}

// Key returns the partition key; events of one execution stay ordered.
func (b BaseEvent) Key() string {
	return b.ExecutionID
}

func newBaseEvent(eventType EventType, workflowID, executionID string) BaseEvent {
	return BaseEvent{
		ID:          uuid.NewString(),
		Type:        eventType,
		Timestamp:   time.Now().UTC(),
		WorkflowID:  workflowID,
		ExecutionID: executionID,
	}
}

type ExecutionStarted struct {
	BaseEvent

	WorkflowName string         `json:"workflow_name"`
	TriggerData  map[string]any `json:"trigger_data,omitempty"`
	Initiator    string         `json:"initiator,omitempty"`
	TotalNodes   int            `json:"total_nodes"`
}

func (e ExecutionStarted) GetType() EventType { return ExecutionStartedEvent }

// NewExecutionStarted builds the event emitted when a run leaves NEW.
func NewExecutionStarted(record *models.ExecutionRecord, workflowName string, triggerData map[string]any) ExecutionStarted {
	return ExecutionStarted{
		BaseEvent:    newBaseEvent(ExecutionStartedEvent, record.WorkflowID, record.ID),
		WorkflowName: workflowName,
		TriggerData:  triggerData,
		Initiator:    record.UserID,
		TotalNodes:   record.TotalNodes,
	}
}

type ExecutionCompleted struct {
	BaseEvent

	DurationMS     int64 `json:"duration_ms"`
	CompletedNodes int   `json:"completed_nodes"`
}

func (e ExecutionCompleted) GetType() EventType { return ExecutionCompletedEvent }

func NewExecutionCompleted(record *models.ExecutionRecord) ExecutionCompleted {
	return ExecutionCompleted{
		BaseEvent:      newBaseEvent(ExecutionCompletedEvent, record.WorkflowID, record.ID),
		DurationMS:     record.CompletedAt.Sub(record.StartedAt).Milliseconds(),
		CompletedNodes: record.CompletedNodes,
	}
}

type ExecutionFailed struct {
	BaseEvent

	ErrorMessage string `json:"error_message"`
	ErrorNodeID  string `json:"error_node_id,omitempty"`
}

func (e ExecutionFailed) GetType() EventType { return ExecutionFailedEvent }

func NewExecutionFailed(record *models.ExecutionRecord) ExecutionFailed {
	return ExecutionFailed{
		BaseEvent:    newBaseEvent(ExecutionFailedEvent, record.WorkflowID, record.ID),
		ErrorMessage: record.ErrorMessage,
		ErrorNodeID:  record.ErrorNodeID,
	}
}

type ExecutionPaused struct {
	BaseEvent

	NodeID        string `json:"node_id"`
	InteractionID string `json:"interaction_id,omitempty"`
}

func (e ExecutionPaused) GetType() EventType { return ExecutionPausedEvent }

func NewExecutionPaused(record *models.ExecutionRecord, interactionID string) ExecutionPaused {
	return ExecutionPaused{
		BaseEvent:     newBaseEvent(ExecutionPausedEvent, record.WorkflowID, record.ID),
		NodeID:        record.CurrentNodeID,
		InteractionID: interactionID,
	}
}

type ExecutionResumed struct {
	BaseEvent

	NodeID string `json:"node_id"`
	// TimedOut marks resumptions synthesized by the timeout sweep.
	TimedOut bool `json:"timed_out,omitempty"`
}

func (e ExecutionResumed) GetType() EventType { return ExecutionResumedEvent }

func NewExecutionResumed(record *models.ExecutionRecord, timedOut bool) ExecutionResumed {
	return ExecutionResumed{
		BaseEvent: newBaseEvent(ExecutionResumedEvent, record.WorkflowID, record.ID),
		NodeID:    record.CurrentNodeID,
		TimedOut:  timedOut,
	}
}

type ExecutionCancelled struct {
	BaseEvent
}

func (e ExecutionCancelled) GetType() EventType { return ExecutionCancelledEvent }

func NewExecutionCancelled(record *models.ExecutionRecord) ExecutionCancelled {
	return ExecutionCancelled{
		BaseEvent: newBaseEvent(ExecutionCancelledEvent, record.WorkflowID, record.ID),
	}
}

type NodeCompleted struct {
	BaseEvent

	NodeID     string            `json:"node_id"`
	Status     models.NodeStatus `json:"status"`
	OutputPort string            `json:"output_port,omitempty"`
	DurationMS int64             `json:"duration_ms"`
}

func (e NodeCompleted) GetType() EventType { return NodeCompletedEvent }

func NewNodeCompleted(workflowID, executionID string, result *models.NodeExecutionResult) NodeCompleted {
	return NodeCompleted{
		BaseEvent:  newBaseEvent(NodeCompletedEvent, workflowID, executionID),
		NodeID:     result.NodeID,
		Status:     result.Status,
		OutputPort: result.OutputPort,
		DurationMS: result.ExecutionTimeMS,
	}
}

type NodeFailed struct {
	BaseEvent

	NodeID       string           `json:"node_id"`
	ErrorMessage string           `json:"error_message"`
	ErrorKind    models.ErrorKind `json:"error_kind"`
	DurationMS   int64            `json:"duration_ms"`
}

func (e NodeFailed) GetType() EventType { return NodeFailedEvent }

func NewNodeFailed(workflowID, executionID string, result *models.NodeExecutionResult) NodeFailed {
	event := NodeFailed{
		BaseEvent:  newBaseEvent(NodeFailedEvent, workflowID, executionID),
		NodeID:     result.NodeID,
		DurationMS: result.ExecutionTimeMS,
	}

	if result.Error != nil {
		event.ErrorMessage = result.Error.Message
		event.ErrorKind = result.Error.Kind
	}

	return event
}

// TopicFor returns the Kafka topic an event belongs on.
func TopicFor(eventType EventType) string {
	switch eventType {
	case NodeCompletedEvent, NodeFailedEvent:
		return NodeTopic
	default:
		return ExecutionTopic
	}
}
