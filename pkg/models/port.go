package models

// PortSpec declares one input or output port of a node specification.
// MaxConnections bounds fan-in (input ports) or fan-out (output ports);
// -1 means unlimited.
type PortSpec struct {
	Name           string           `json:"name"`
	Types          []ConnectionType `json:"types,omitempty"` // empty = accepts any
	MaxConnections int              `json:"max_connections,omitempty"`
	Required       bool             `json:"required,omitempty"`
	Description    string           `json:"description,omitempty"`
}

// Accepts reports whether the port admits a connection of the given type.
// A port that declares no types is permissive.
func (p *PortSpec) Accepts(t ConnectionType) bool {
	if len(p.Types) == 0 {
		return true
	}

	for _, pt := range p.Types {
		if pt == t {
			return true
		}
	}

	return false
}

// Unbounded reports whether the port places no limit on its connection count.
func (p *PortSpec) Unbounded() bool {
	return p.MaxConnections <= 0 || p.MaxConnections == -1
}
