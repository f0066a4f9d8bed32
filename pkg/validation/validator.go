// Package validation statically checks workflow graphs before execution:
// node specification conformance, connection wiring, port compatibility and
// cycle freedom. All checks accumulate; the validator never throws and
// never short-circuits on an earlier failure.
package validation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/weftworks/weft/pkg/models"
	"github.com/weftworks/weft/pkg/planner"
	"github.com/weftworks/weft/pkg/specs"
)

// Severity separates findings that block execution from advisories.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue codes.
const (
	CodeDuplicateNodeID     = "duplicate_node_id"
	CodeDuplicateNodeName   = "duplicate_node_name"
	CodeUnknownNodeType     = "unknown_node_type"
	CodeInvalidParameter    = "invalid_parameter"
	CodeUnknownSource       = "unknown_connection_source"
	CodeUnknownTarget       = "unknown_connection_target"
	CodeIncompatiblePort    = "incompatible_connection_type"
	CodeFanLimitExceeded    = "max_connections_exceeded"
	CodeCycleDetected       = "cycle_detected"
	CodeNoTrigger           = "no_trigger_node"
	CodeUnknownTriggerRef   = "unknown_trigger_reference"
	CodeUnlistedTriggerNode = "trigger_node_not_listed"
)

// Issue is one validation finding.
type Issue struct {
	Severity Severity `json:"severity"`
	Code     string   `json:"code"`
	NodeID   string   `json:"node_id,omitempty"`
	Message  string   `json:"message"`
}

// Result partitions the findings of one validation run.
type Result struct {
	Errors   []Issue `json:"errors"`
	Warnings []Issue `json:"warnings"`
}

// Valid reports whether the workflow may execute.
func (r *Result) Valid() bool {
	return len(r.Errors) == 0
}

// Validator checks workflows against a node specification provider.
type Validator struct {
	specs specs.Provider
}

// NewValidator creates a validator backed by the given spec provider.
func NewValidator(provider specs.Provider) *Validator {
	return &Validator{specs: provider}
}

// Validate runs every check and returns the accumulated findings. Two calls
// on the same unmodified workflow return identical results.
func (v *Validator) Validate(w *models.Workflow) *Result {
	result := &Result{Errors: []Issue{}, Warnings: []Issue{}}

	v.checkUniqueness(w, result)
	v.checkNodeSpecs(w, result)
	v.checkConnections(w, result)
	v.checkCycles(w, result)
	v.checkTriggers(w, result)

	return result
}

func (r *Result) addError(code, nodeID, message string) {
	r.Errors = append(r.Errors, Issue{Severity: SeverityError, Code: code, NodeID: nodeID, Message: message})
}

func (r *Result) addWarning(code, nodeID, message string) {
	r.Warnings = append(r.Warnings, Issue{Severity: SeverityWarning, Code: code, NodeID: nodeID, Message: message})
}

func (v *Validator) checkUniqueness(w *models.Workflow, result *Result) {
	seenIDs := make(map[string]bool, len(w.Nodes))
	seenNames := make(map[string]bool, len(w.Nodes))

	for _, n := range w.Nodes {
		if seenIDs[n.ID] {
			result.addError(CodeDuplicateNodeID, n.ID, fmt.Sprintf("node id %q is used more than once", n.ID))
		}

		// Names double as connection-map keys, so they must be unique too.
		if seenNames[n.Name] {
			result.addError(CodeDuplicateNodeName, n.ID, fmt.Sprintf("node name %q is used more than once", n.Name))
		}

		seenIDs[n.ID] = true
		seenNames[n.Name] = true
	}
}

func (v *Validator) checkNodeSpecs(w *models.Workflow, result *Result) {
	for _, n := range w.Nodes {
		spec, ok := v.specs.GetSpec(n.Type, n.Subtype)
		if !ok {
			result.addError(CodeUnknownNodeType, n.ID,
				fmt.Sprintf("node %q has unknown type/subtype combination %s/%s", n.ID, n.Type, n.Subtype))

			continue
		}

		issues, err := spec.ValidateParameters(n.Parameters)
		if err != nil {
			result.addError(CodeInvalidParameter, n.ID,
				fmt.Sprintf("node %q parameters could not be validated: %v", n.ID, err))

			continue
		}

		for _, issue := range issues {
			message := fmt.Sprintf("node %q parameter %q: %s", n.ID, issue.Field, issue.Message)
			if issue.Severe {
				result.addError(CodeInvalidParameter, n.ID, message)
			} else {
				result.addWarning(CodeInvalidParameter, n.ID, message)
			}
		}
	}
}

// Connection types in a fixed order so findings come out deterministic.
var connectionTypeOrder = []models.ConnectionType{
	models.ConnectionTypeMain,
	models.ConnectionTypeAITool,
	models.ConnectionTypeAIMemory,
	models.ConnectionType(""), // untyped entries default to MAIN
}

func (v *Validator) checkConnections(w *models.Workflow, result *Result) {
	// Fan counts per (node, port, direction) to enforce max_connections.
	fanOut := make(map[string]int)
	fanIn := make(map[string]int)

	// Source names that match no node, sorted for stable output.
	var unknownSources []string

	for sourceName := range w.Connections {
		if w.NodeByName(sourceName) == nil {
			unknownSources = append(unknownSources, sourceName)
		}
	}

	sort.Strings(unknownSources)

	for _, sourceName := range unknownSources {
		result.addError(CodeUnknownSource, "",
			fmt.Sprintf("connection source %q does not match any node name", sourceName))
	}

	for i := range w.Nodes {
		source := w.Nodes[i]
		byType := w.Connections[source.Name]

		for _, connType := range connectionTypeOrder {
			for _, conn := range byType[connType] {
				target := w.NodeByName(conn.TargetNode)
				if target == nil {
					result.addError(CodeUnknownTarget, source.ID,
						fmt.Sprintf("connection from %q targets unknown node %q", source.Name, conn.TargetNode))

					continue
				}

				v.checkPortCompatibility(source, target, connType, conn, result)

				fanOut[source.ID+"/"+conn.SourcePortOrDefault()]++
				fanIn[target.ID+"/"+conn.TargetPortOrDefault()]++
			}
		}
	}

	v.checkFanLimits(w, fanOut, fanIn, result)
}

func (v *Validator) checkPortCompatibility(source, target *models.Node, connType models.ConnectionType, conn models.Connection, result *Result) {
	if connType == "" {
		connType = models.ConnectionTypeMain
	}

	// Nodes without a registered spec were already reported; nodes whose
	// spec declares no ports accept anything (permissive default).
	if sourceSpec, ok := v.specs.GetSpec(source.Type, source.Subtype); ok && len(sourceSpec.OutputPorts) > 0 {
		port := sourceSpec.OutputPort(conn.SourcePortOrDefault())
		if port == nil || !port.Accepts(connType) {
			result.addError(CodeIncompatiblePort, source.ID,
				fmt.Sprintf("node %q output port %q does not carry %s connections",
					source.ID, conn.SourcePortOrDefault(), connType))
		}
	}

	if targetSpec, ok := v.specs.GetSpec(target.Type, target.Subtype); ok && len(targetSpec.InputPorts) > 0 {
		port := targetSpec.InputPort(conn.TargetPortOrDefault())
		if port == nil || !port.Accepts(connType) {
			result.addError(CodeIncompatiblePort, target.ID,
				fmt.Sprintf("node %q input port %q does not accept %s connections",
					target.ID, conn.TargetPortOrDefault(), connType))
		}
	}
}

func (v *Validator) checkFanLimits(w *models.Workflow, fanOut, fanIn map[string]int, result *Result) {
	for _, n := range w.Nodes {
		spec, ok := v.specs.GetSpec(n.Type, n.Subtype)
		if !ok {
			continue
		}

		for i := range spec.OutputPorts {
			port := &spec.OutputPorts[i]
			if port.Unbounded() {
				continue
			}

			if count := fanOut[n.ID+"/"+port.Name]; count > port.MaxConnections {
				result.addError(CodeFanLimitExceeded, n.ID,
					fmt.Sprintf("node %q output port %q allows %d connections, found %d",
						n.ID, port.Name, port.MaxConnections, count))
			}
		}

		for i := range spec.InputPorts {
			port := &spec.InputPorts[i]
			if port.Unbounded() {
				continue
			}

			if count := fanIn[n.ID+"/"+port.Name]; count > port.MaxConnections {
				result.addError(CodeFanLimitExceeded, n.ID,
					fmt.Sprintf("node %q input port %q allows %d connections, found %d",
						n.ID, port.Name, port.MaxConnections, count))
			}
		}
	}
}

func (v *Validator) checkCycles(w *models.Workflow, result *Result) {
	if members := planner.HasCycle(w); len(members) > 0 {
		result.addError(CodeCycleDetected, "",
			fmt.Sprintf("MAIN connections form a cycle through nodes %s", strings.Join(members, ", ")))
	}
}

func (v *Validator) checkTriggers(w *models.Workflow, result *Result) {
	hasTrigger := false

	for _, n := range w.Nodes {
		if n.IsTrigger() {
			hasTrigger = true

			break
		}
	}

	if !hasTrigger {
		result.addError(CodeNoTrigger, "", "workflow has no trigger-type node")
	}

	listed := make(map[string]bool, len(w.Triggers))

	for _, id := range w.Triggers {
		listed[id] = true

		if w.NodeByID(id) == nil {
			result.addError(CodeUnknownTriggerRef, id,
				fmt.Sprintf("triggers references unknown node id %q", id))
		}
	}

	for _, n := range w.Nodes {
		if n.IsTrigger() && !listed[n.ID] {
			result.addWarning(CodeUnlistedTriggerNode, n.ID,
				fmt.Sprintf("trigger-type node %q is not listed in workflow.triggers", n.ID))
		}
	}
}
