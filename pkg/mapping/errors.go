// Package mapping implements the data-mapping DSL that transforms one
// node's output into another node's input: direct pass-through, ordered
// field mappings with per-field transforms, and JSON templates.
package mapping

import "fmt"

// Error is a mapping failure. It surfaces as the ERROR result of the node
// that receives the mapped data, never of the source node.
type Error struct {
	Field  string // source field or placeholder path, when one is at fault
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("mapping failed for field %q: %s", e.Field, e.Reason)
	}

	return "mapping failed: " + e.Reason
}

func (e *Error) Unwrap() error {
	return e.Err
}

func missingRequiredField(field string) *Error {
	return &Error{Field: field, Reason: "required field is missing from source data"}
}

func unknownFunction(name string) *Error {
	return &Error{Reason: fmt.Sprintf("unknown transform function %q", name)}
}
