package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weftworks/weft/pkg/models"
	"github.com/weftworks/weft/pkg/specs"
)

func newTestValidator(t *testing.T) *Validator {
	t.Helper()

	return NewValidator(specs.NewDefaultRegistry())
}

func triggerNode(id, name string) *models.Node {
	return &models.Node{ID: id, Name: name, Type: models.NodeTypeTrigger, Subtype: models.SubtypeManual}
}

func httpNode(id, name string) *models.Node {
	return &models.Node{
		ID:      id,
		Name:    name,
		Type:    models.NodeTypeAction,
		Subtype: models.SubtypeHTTP,
		Parameters: map[string]any{
			"url": "https://example.com/" + id,
		},
	}
}

func mainConn(target string) models.Connection {
	return models.Connection{TargetNode: target, Type: models.ConnectionTypeMain}
}

func issueCodes(issues []Issue) []string {
	codes := make([]string, 0, len(issues))
	for _, i := range issues {
		codes = append(codes, i.Code)
	}

	return codes
}

func TestValidate_ValidLinearWorkflow(t *testing.T) {
	w := &models.Workflow{
		ID:       "wf-1",
		Name:     "linear",
		Nodes:    []*models.Node{triggerNode("t1", "start"), httpNode("a1", "fetch")},
		Triggers: []string{"t1"},
		Connections: models.ConnectionMap{
			"start": {models.ConnectionTypeMain: {mainConn("fetch")}},
		},
	}

	result := newTestValidator(t).Validate(w)

	assert.True(t, result.Valid())
	assert.Empty(t, result.Errors)
	assert.Empty(t, result.Warnings)
}

func TestValidate_UnknownNodeType(t *testing.T) {
	w := &models.Workflow{
		Nodes: []*models.Node{
			triggerNode("t1", "start"),
			{ID: "x1", Name: "mystery", Type: "QUANTUM", Subtype: "ENTANGLE"},
		},
		Triggers: []string{"t1"},
	}

	result := newTestValidator(t).Validate(w)

	require.False(t, result.Valid())
	assert.Contains(t, issueCodes(result.Errors), CodeUnknownNodeType)
}

func TestValidate_MissingRequiredParameter(t *testing.T) {
	w := &models.Workflow{
		Nodes: []*models.Node{
			triggerNode("t1", "start"),
			{ID: "h1", Name: "fetch", Type: models.NodeTypeAction, Subtype: models.SubtypeHTTP, Parameters: map[string]any{}},
		},
		Triggers: []string{"t1"},
	}

	result := newTestValidator(t).Validate(w)

	require.False(t, result.Valid())
	assert.Contains(t, issueCodes(result.Errors), CodeInvalidParameter)
}

func TestValidate_OptionalParameterTypeMismatchIsWarning(t *testing.T) {
	w := &models.Workflow{
		Nodes: []*models.Node{
			triggerNode("t1", "start"),
			{ID: "h1", Name: "fetch", Type: models.NodeTypeAction, Subtype: models.SubtypeHTTP, Parameters: map[string]any{
				"url":             "https://example.com",
				"timeout_seconds": "soon",
			}},
		},
		Triggers: []string{"t1"},
	}

	result := newTestValidator(t).Validate(w)

	assert.True(t, result.Valid())
	assert.Contains(t, issueCodes(result.Warnings), CodeInvalidParameter)
}

func TestValidate_UnknownConnectionEndpoints(t *testing.T) {
	w := &models.Workflow{
		Nodes:    []*models.Node{triggerNode("t1", "start"), httpNode("a1", "fetch")},
		Triggers: []string{"t1"},
		Connections: models.ConnectionMap{
			"start": {models.ConnectionTypeMain: {mainConn("nowhere")}},
			"ghost": {models.ConnectionTypeMain: {mainConn("fetch")}},
		},
	}

	result := newTestValidator(t).Validate(w)

	require.False(t, result.Valid())
	codes := issueCodes(result.Errors)
	assert.Contains(t, codes, CodeUnknownSource)
	assert.Contains(t, codes, CodeUnknownTarget)
}

func TestValidate_IncompatiblePortType(t *testing.T) {
	w := &models.Workflow{
		Nodes: []*models.Node{
			triggerNode("t1", "start"),
			httpNode("a1", "fetch"),
		},
		Triggers: []string{"t1"},
		Connections: models.ConnectionMap{
			// HTTP nodes have no AI_TOOL-capable main port.
			"start": {models.ConnectionTypeAITool: {
				{TargetNode: "fetch", Type: models.ConnectionTypeAITool},
			}},
		},
	}

	result := newTestValidator(t).Validate(w)

	require.False(t, result.Valid())
	assert.Contains(t, issueCodes(result.Errors), CodeIncompatiblePort)
}

func TestValidate_MemoryPortFanInLimit(t *testing.T) {
	agent := &models.Node{
		ID: "ai1", Name: "agent", Type: models.NodeTypeAIAgent, Subtype: models.SubtypeLLMChat,
		Parameters: map[string]any{"model": "gpt-4o", "prompt": "hi"},
	}
	memA := &models.Node{ID: "m1", Name: "mem-a", Type: models.NodeTypeMemory, Subtype: models.SubtypeKeyValue,
		Parameters: map[string]any{"operation": "get"}}
	memB := &models.Node{ID: "m2", Name: "mem-b", Type: models.NodeTypeMemory, Subtype: models.SubtypeKeyValue,
		Parameters: map[string]any{"operation": "get"}}

	w := &models.Workflow{
		Nodes:    []*models.Node{triggerNode("t1", "start"), agent, memA, memB},
		Triggers: []string{"t1"},
		Connections: models.ConnectionMap{
			"start": {models.ConnectionTypeMain: {mainConn("agent")}},
			"mem-a": {models.ConnectionTypeAIMemory: {
				{TargetNode: "agent", TargetPort: "memory", Type: models.ConnectionTypeAIMemory},
			}},
			"mem-b": {models.ConnectionTypeAIMemory: {
				{TargetNode: "agent", TargetPort: "memory", Type: models.ConnectionTypeAIMemory},
			}},
		},
	}

	result := newTestValidator(t).Validate(w)

	require.False(t, result.Valid())
	assert.Contains(t, issueCodes(result.Errors), CodeFanLimitExceeded)
}

func TestValidate_CycleReportsMembers(t *testing.T) {
	w := &models.Workflow{
		Nodes: []*models.Node{
			{ID: "a", Name: "a", Type: models.NodeTypeAction, Subtype: models.SubtypeHTTP, Parameters: map[string]any{"url": "https://example.com"}},
			{ID: "b", Name: "b", Type: models.NodeTypeAction, Subtype: models.SubtypeHTTP, Parameters: map[string]any{"url": "https://example.com"}},
			{ID: "c", Name: "c", Type: models.NodeTypeAction, Subtype: models.SubtypeHTTP, Parameters: map[string]any{"url": "https://example.com"}},
			triggerNode("t1", "start"),
		},
		Triggers: []string{"t1"},
		Connections: models.ConnectionMap{
			"start": {models.ConnectionTypeMain: {mainConn("a")}},
			"a":     {models.ConnectionTypeMain: {mainConn("b")}},
			"b":     {models.ConnectionTypeMain: {mainConn("c"), mainConn("a")}},
		},
	}

	result := newTestValidator(t).Validate(w)

	require.False(t, result.Valid())

	var cycleIssue *Issue

	for i := range result.Errors {
		if result.Errors[i].Code == CodeCycleDetected {
			cycleIssue = &result.Errors[i]
		}
	}

	require.NotNil(t, cycleIssue)
	assert.Contains(t, cycleIssue.Message, "nodes a, b")
	assert.NotContains(t, cycleIssue.Message, "c,")
}

func TestValidate_NoTrigger(t *testing.T) {
	w := &models.Workflow{
		Nodes: []*models.Node{httpNode("a1", "fetch")},
	}

	result := newTestValidator(t).Validate(w)

	require.False(t, result.Valid())
	assert.Contains(t, issueCodes(result.Errors), CodeNoTrigger)
}

func TestValidate_TriggerBookkeeping(t *testing.T) {
	w := &models.Workflow{
		Nodes:    []*models.Node{triggerNode("t1", "start")},
		Triggers: []string{"t1", "t-missing"},
	}

	result := newTestValidator(t).Validate(w)

	assert.Contains(t, issueCodes(result.Errors), CodeUnknownTriggerRef)

	// A trigger-type node missing from the triggers list is only advisory.
	w2 := &models.Workflow{
		Nodes:    []*models.Node{triggerNode("t1", "start"), triggerNode("t2", "backup")},
		Triggers: []string{"t1"},
	}

	result2 := newTestValidator(t).Validate(w2)

	assert.True(t, result2.Valid())
	assert.Contains(t, issueCodes(result2.Warnings), CodeUnlistedTriggerNode)
}

func TestValidate_DuplicateIDsAndNames(t *testing.T) {
	w := &models.Workflow{
		Nodes: []*models.Node{
			triggerNode("t1", "start"),
			httpNode("a1", "fetch"),
			httpNode("a1", "fetch"),
		},
		Triggers: []string{"t1"},
	}

	result := newTestValidator(t).Validate(w)

	require.False(t, result.Valid())
	codes := issueCodes(result.Errors)
	assert.Contains(t, codes, CodeDuplicateNodeID)
	assert.Contains(t, codes, CodeDuplicateNodeName)
}

func TestValidate_AccumulatesAcrossChecks(t *testing.T) {
	// Broken in four independent ways: unknown type, missing parameter,
	// dangling target and no trigger. Every failure must surface.
	w := &models.Workflow{
		Nodes: []*models.Node{
			{ID: "x1", Name: "mystery", Type: "QUANTUM", Subtype: "ENTANGLE"},
			{ID: "h1", Name: "fetch", Type: models.NodeTypeAction, Subtype: models.SubtypeHTTP},
		},
		Connections: models.ConnectionMap{
			"fetch": {models.ConnectionTypeMain: {mainConn("nowhere")}},
		},
	}

	result := newTestValidator(t).Validate(w)

	codes := issueCodes(result.Errors)
	assert.Contains(t, codes, CodeUnknownNodeType)
	assert.Contains(t, codes, CodeInvalidParameter)
	assert.Contains(t, codes, CodeUnknownTarget)
	assert.Contains(t, codes, CodeNoTrigger)
}

func TestValidate_Idempotent(t *testing.T) {
	w := &models.Workflow{
		Nodes: []*models.Node{
			{ID: "x1", Name: "mystery", Type: "QUANTUM", Subtype: "ENTANGLE"},
			httpNode("a1", "fetch"),
		},
		Connections: models.ConnectionMap{
			"fetch": {models.ConnectionTypeMain: {mainConn("gone")}},
			"lost":  {models.ConnectionTypeMain: {mainConn("fetch")}},
		},
	}

	v := newTestValidator(t)

	first := v.Validate(w)
	second := v.Validate(w)

	assert.Equal(t, first, second)
}
