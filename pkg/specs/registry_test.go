package specs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weftworks/weft/pkg/models"
)

func TestDefaultRegistry_KnownCombinations(t *testing.T) {
	r := NewDefaultRegistry()

	tests := []struct {
		nodeType models.NodeType
		subtype  string
	}{
		{models.NodeTypeTrigger, models.SubtypeManual},
		{models.NodeTypeTrigger, models.SubtypeCron},
		{models.NodeTypeTrigger, models.SubtypeWebhook},
		{models.NodeTypeAction, models.SubtypeHTTP},
		{models.NodeTypeAction, models.SubtypeTransform},
		{models.NodeTypeAIAgent, models.SubtypeLLMChat},
		{models.NodeTypeExternalAction, models.SubtypeSlack},
		{models.NodeTypeExternalAction, models.SubtypeGitHub},
		{models.NodeTypeExternalAction, models.SubtypeGoogleCalendar},
		{models.NodeTypeExternalAction, models.SubtypeEmail},
		{models.NodeTypeFlow, models.SubtypeIf},
		{models.NodeTypeFlow, models.SubtypeFilter},
		{models.NodeTypeFlow, models.SubtypeForEach},
		{models.NodeTypeTool, models.SubtypeUtility},
		{models.NodeTypeMemory, models.SubtypeKeyValue},
		{models.NodeTypeMemory, models.SubtypeConversationBuffer},
		{models.NodeTypeHumanInTheLoop, models.SubtypeApproval},
	}

	for _, tt := range tests {
		t.Run(string(tt.nodeType)+"/"+tt.subtype, func(t *testing.T) {
			spec, ok := r.GetSpec(tt.nodeType, tt.subtype)
			require.True(t, ok)
			assert.Equal(t, tt.nodeType, spec.Type)
			assert.Equal(t, tt.subtype, spec.Subtype)
		})
	}
}

func TestRegistry_UnknownCombination(t *testing.T) {
	r := NewDefaultRegistry()

	_, ok := r.GetSpec(models.NodeTypeAction, "TELEPORT")
	assert.False(t, ok)
}

func TestValidateParameters_MissingRequiredIsSevere(t *testing.T) {
	r := NewDefaultRegistry()
	spec, ok := r.GetSpec(models.NodeTypeAction, models.SubtypeHTTP)
	require.True(t, ok)

	issues, err := spec.ValidateParameters(map[string]any{"method": "GET"})
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, "url", issues[0].Field)
	assert.True(t, issues[0].Severe)
}

func TestValidateParameters_WrongTypeOnRequiredIsSevere(t *testing.T) {
	r := NewDefaultRegistry()
	spec, ok := r.GetSpec(models.NodeTypeAction, models.SubtypeHTTP)
	require.True(t, ok)

	issues, err := spec.ValidateParameters(map[string]any{"url": 42})
	require.NoError(t, err)
	require.NotEmpty(t, issues)
	assert.True(t, issues[0].Severe)
}

func TestValidateParameters_WrongTypeOnOptionalIsWarning(t *testing.T) {
	r := NewDefaultRegistry()
	spec, ok := r.GetSpec(models.NodeTypeAction, models.SubtypeHTTP)
	require.True(t, ok)

	issues, err := spec.ValidateParameters(map[string]any{
		"url":             "https://example.com",
		"timeout_seconds": "soon",
	})
	require.NoError(t, err)
	require.NotEmpty(t, issues)
	assert.False(t, issues[0].Severe)
}

func TestValidateParameters_ValidParams(t *testing.T) {
	r := NewDefaultRegistry()
	spec, ok := r.GetSpec(models.NodeTypeFlow, models.SubtypeIf)
	require.True(t, ok)

	issues, err := spec.ValidateParameters(map[string]any{"condition": "input.total > 10"})
	require.NoError(t, err)
	assert.Empty(t, issues)
}

func TestPortSpec_Accepts(t *testing.T) {
	r := NewDefaultRegistry()
	spec, ok := r.GetSpec(models.NodeTypeAIAgent, models.SubtypeLLMChat)
	require.True(t, ok)

	tools := spec.InputPort("tools")
	require.NotNil(t, tools)
	assert.True(t, tools.Accepts(models.ConnectionTypeAITool))
	assert.False(t, tools.Accepts(models.ConnectionTypeMain))

	memory := spec.InputPort("memory")
	require.NotNil(t, memory)
	assert.False(t, memory.Unbounded())
	assert.Equal(t, 1, memory.MaxConnections)
}
