package models

// ConnectionType classifies an edge. Only MAIN edges carry execution order;
// the AI_* types share data with agent nodes without sequencing them.
type ConnectionType string

const (
	ConnectionTypeMain     ConnectionType = "MAIN"
	ConnectionTypeAITool   ConnectionType = "AI_TOOL"
	ConnectionTypeAIMemory ConnectionType = "AI_MEMORY"
)

// Default port name used when a connection does not name one.
const PortMain = "main"

// Branch port names produced by flow-control and human-in-the-loop nodes.
const (
	PortTrue    = "true"
	PortFalse   = "false"
	PortTimeout = "timeout"
)

// Connection is one directed edge from a source node's output port to a
// target node's input port. Connections are keyed by source node *name* in
// the workflow connection map; the target is likewise referenced by name.
type Connection struct {
	SourcePort string         `json:"source_port,omitempty"` // defaults to "main"
	TargetNode string         `json:"target_node" validate:"required"`
	TargetPort string         `json:"target_port,omitempty"` // defaults to "main"
	Type       ConnectionType `json:"type,omitempty"`        // defaults to MAIN
	Mapping    *DataMapping   `json:"mapping,omitempty"`
}

// SourcePortOrDefault returns the source port name, defaulting to "main".
func (c *Connection) SourcePortOrDefault() string {
	if c.SourcePort == "" {
		return PortMain
	}

	return c.SourcePort
}

// TargetPortOrDefault returns the target port name, defaulting to "main".
func (c *Connection) TargetPortOrDefault() string {
	if c.TargetPort == "" {
		return PortMain
	}

	return c.TargetPort
}

// TypeOrDefault returns the connection type, defaulting to MAIN.
func (c *Connection) TypeOrDefault() ConnectionType {
	if c.Type == "" {
		return ConnectionTypeMain
	}

	return c.Type
}

// ConnectionMap is the authored adjacency structure: source node name →
// connection type → ordered connection list. Order is load-bearing for the
// engine's left-to-right input merge.
type ConnectionMap map[string]map[ConnectionType][]Connection
