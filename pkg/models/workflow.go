package models

import "time"

// ExecutionMode selects how independent branches are dispatched. The engine
// currently runs every execution sequentially; the field is carried so
// authored workflows round-trip.
type ExecutionMode string

const (
	ExecutionModeSequential ExecutionMode = "sequential"
	ExecutionModeParallel   ExecutionMode = "parallel"
)

// WorkflowSettings holds execution tuning for a whole workflow.
type WorkflowSettings struct {
	TimeoutSeconds int           `json:"timeout_seconds,omitempty"`
	MaxRetries     int           `json:"max_retries,omitempty"`
	RetryDelayMS   int           `json:"retry_delay_ms,omitempty"`
	Mode           ExecutionMode `json:"mode,omitempty"`
}

// Workflow is a declarative workflow graph. Once submitted for execution it
// is immutable: the engine reads it and never writes back.
type Workflow struct {
	ID          string           `json:"id"          validate:"required"`
	Name        string           `json:"name"        validate:"required,min=3"`
	Description string           `json:"description,omitempty"`
	Nodes       []*Node          `json:"nodes"       validate:"required,min=1"`
	Connections ConnectionMap    `json:"connections,omitempty"`
	Triggers    []string         `json:"triggers,omitempty"` // node IDs that are entry points
	StaticData  map[string]any   `json:"static_data,omitempty"`
	Settings    WorkflowSettings `json:"settings,omitempty"`
	Owner       string           `json:"owner,omitempty"`
	CreatedAt   time.Time        `json:"created_at,omitempty"`
	UpdatedAt   time.Time        `json:"updated_at,omitempty"`
}

// NodeByID returns the node with the given id, or nil.
func (w *Workflow) NodeByID(id string) *Node {
	for _, n := range w.Nodes {
		if n.ID == id {
			return n
		}
	}

	return nil
}

// NodeByName returns the node with the given name, or nil. Connection maps
// reference nodes by name, so name uniqueness is a validated invariant.
func (w *Workflow) NodeByName(name string) *Node {
	for _, n := range w.Nodes {
		if n.Name == name {
			return n
		}
	}

	return nil
}

// TriggerNodes returns the nodes listed in Triggers, skipping dangling ids.
func (w *Workflow) TriggerNodes() []*Node {
	nodes := make([]*Node, 0, len(w.Triggers))

	for _, id := range w.Triggers {
		if n := w.NodeByID(id); n != nil {
			nodes = append(nodes, n)
		}
	}

	return nodes
}

// ConnectionsFrom returns the ordered connections of the given type leaving
// the named source node. Connection lists keyed under the empty type count
// as MAIN, matching how individual connections default their type.
func (w *Workflow) ConnectionsFrom(sourceName string, connType ConnectionType) []Connection {
	byType, ok := w.Connections[sourceName]
	if !ok {
		return nil
	}

	conns := byType[connType]
	if connType == ConnectionTypeMain {
		if untyped := byType[ConnectionType("")]; len(untyped) > 0 {
			merged := make([]Connection, 0, len(conns)+len(untyped))
			merged = append(merged, conns...)
			merged = append(merged, untyped...)

			return merged
		}
	}

	return conns
}

// MainConnectionsTo returns the ordered incoming MAIN connections of the
// named target node, in source-node declaration order. This order defines
// the engine's left-to-right input merge.
func (w *Workflow) MainConnectionsTo(targetName string) []ConnectionRef {
	var incoming []ConnectionRef

	for _, source := range w.Nodes {
		for _, conn := range w.ConnectionsFrom(source.Name, ConnectionTypeMain) {
			if conn.TargetNode == targetName {
				incoming = append(incoming, ConnectionRef{Source: source, Connection: conn})
			}
		}
	}

	return incoming
}

// ConnectionRef pairs a connection with its resolved source node.
type ConnectionRef struct {
	Source     *Node
	Connection Connection
}
