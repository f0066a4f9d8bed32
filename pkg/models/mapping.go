package models

// MappingType is the tagged-variant discriminator of a DataMapping.
type MappingType string

const (
	MappingTypeDirect       MappingType = "DIRECT"
	MappingTypeFieldMapping MappingType = "FIELD_MAPPING"
	MappingTypeTemplate     MappingType = "TEMPLATE"
)

// TransformType classifies a per-field transform.
type TransformType string

const (
	TransformTypeNone      TransformType = "NONE"
	TransformTypeFunction  TransformType = "FUNCTION"
	TransformTypeCondition TransformType = "CONDITION"
)

// FieldTransform describes how an extracted value is reshaped before being
// written to its target field. FUNCTION names a registered transform
// function; CONDITION holds a ternary expression where {{value}} is
// substituted with the extracted value before evaluation.
type FieldTransform struct {
	Type    TransformType  `json:"type"`
	Value   string         `json:"value,omitempty"` // function name or condition expression
	Options map[string]any `json:"options,omitempty"`
}

// FieldMapping moves one value from a source path to a target path.
// Paths use dotted notation with optional [i] / [*] array addressing.
type FieldMapping struct {
	SourceField  string          `json:"source_field" validate:"required"`
	TargetField  string          `json:"target_field" validate:"required"`
	Transform    *FieldTransform `json:"transform,omitempty"`
	Required     bool            `json:"required,omitempty"`
	DefaultValue any             `json:"default_value,omitempty"`
}

// DataMapping transforms one node's output into another node's input.
//
//   - DIRECT passes the source output through unchanged.
//   - FIELD_MAPPING applies Fields in declaration order, then overlays
//     StaticValues (static values win on key collision).
//   - TEMPLATE substitutes {{path}} placeholders in Template and parses
//     the result as JSON.
type DataMapping struct {
	Type         MappingType    `json:"type"`
	Fields       []FieldMapping `json:"fields,omitempty"`
	StaticValues map[string]any `json:"static_values,omitempty"`
	Template     string         `json:"template,omitempty"`
}

// DirectMapping is the implicit mapping of a connection that declares none.
func DirectMapping() *DataMapping {
	return &DataMapping{Type: MappingTypeDirect}
}
