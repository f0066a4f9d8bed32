// Package specs holds node specifications: per (type, subtype), the
// parameter schema, port declarations and examples. The validator consults
// it; execution never does.
package specs

import (
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	"github.com/weftworks/weft/pkg/models"
)

// NodeSpec describes one (type, subtype) combination.
type NodeSpec struct {
	Type        models.NodeType `json:"type"`
	Subtype     string          `json:"subtype"`
	Description string          `json:"description,omitempty"`
	// Parameters is a JSON schema (as a Go map) for the node's parameters.
	Parameters  map[string]any    `json:"parameters,omitempty"`
	InputPorts  []models.PortSpec `json:"input_ports,omitempty"`
	OutputPorts []models.PortSpec `json:"output_ports,omitempty"`
	Examples    []map[string]any  `json:"examples,omitempty"`
}

// InputPort returns the named input port declaration, or nil.
func (s *NodeSpec) InputPort(name string) *models.PortSpec {
	for i := range s.InputPorts {
		if s.InputPorts[i].Name == name {
			return &s.InputPorts[i]
		}
	}

	return nil
}

// OutputPort returns the named output port declaration, or nil.
func (s *NodeSpec) OutputPort(name string) *models.PortSpec {
	for i := range s.OutputPorts {
		if s.OutputPorts[i].Name == name {
			return &s.OutputPorts[i]
		}
	}

	return nil
}

// Provider is the lookup surface the validator depends on.
type Provider interface {
	GetSpec(nodeType models.NodeType, subtype string) (*NodeSpec, bool)
}

// Registry is an in-memory spec provider. Safe for concurrent reads.
type Registry struct {
	mu    sync.RWMutex
	specs map[string]*NodeSpec
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{specs: make(map[string]*NodeSpec)}
}

// Register adds or replaces a node specification.
func (r *Registry) Register(spec *NodeSpec) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.specs[specKey(spec.Type, spec.Subtype)] = spec
}

// GetSpec returns the spec for (nodeType, subtype), if registered.
func (r *Registry) GetSpec(nodeType models.NodeType, subtype string) (*NodeSpec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	spec, ok := r.specs[specKey(nodeType, subtype)]

	return spec, ok
}

func specKey(nodeType models.NodeType, subtype string) string {
	return string(nodeType) + ":" + subtype
}

// ParameterIssue is a single finding from parameter validation.
type ParameterIssue struct {
	Field   string
	Message string
	// Severe findings (missing or wrong-typed required parameters) are
	// errors; the rest are warnings.
	Severe bool
}

// ValidateParameters checks a node's parameters against the spec's schema.
// Missing or wrong-typed required parameters are severe; type mismatches on
// optional parameters are warnings.
func (s *NodeSpec) ValidateParameters(params map[string]any) ([]ParameterIssue, error) {
	if s.Parameters == nil {
		return nil, nil
	}

	if params == nil {
		params = map[string]any{}
	}

	schemaLoader := gojsonschema.NewGoLoader(s.Parameters)
	dataLoader := gojsonschema.NewGoLoader(params)

	result, err := gojsonschema.Validate(schemaLoader, dataLoader)
	if err != nil {
		return nil, fmt.Errorf("parameter schema for %s/%s is invalid: %w", s.Type, s.Subtype, err)
	}

	required := requiredFields(s.Parameters)

	issues := make([]ParameterIssue, 0, len(result.Errors()))
	for _, resErr := range result.Errors() {
		field := resErr.Field()
		if resErr.Type() == "required" {
			if prop, ok := resErr.Details()["property"].(string); ok {
				field = prop
			}
		}

		issues = append(issues, ParameterIssue{
			Field:   field,
			Message: resErr.Description(),
			Severe:  resErr.Type() == "required" || required[rootField(field)],
		})
	}

	return issues, nil
}

func requiredFields(schema map[string]any) map[string]bool {
	required := make(map[string]bool)

	switch list := schema["required"].(type) {
	case []string:
		for _, f := range list {
			required[f] = true
		}
	case []any:
		for _, f := range list {
			if name, ok := f.(string); ok {
				required[name] = true
			}
		}
	}

	return required
}

func rootField(field string) string {
	if i := strings.IndexByte(field, '.'); i >= 0 {
		return field[:i]
	}

	return field
}
