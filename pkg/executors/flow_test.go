package executors

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weftworks/weft/pkg/models"
)

func flowNode(subtype string, params map[string]any) *models.Node {
	return &models.Node{
		ID:         "f1",
		Name:       "branch",
		Type:       models.NodeTypeFlow,
		Subtype:    subtype,
		Parameters: params,
	}
}

func TestIfExecutor_RoutesTrueAndFalse(t *testing.T) {
	executor := NewIfExecutor()

	tests := []struct {
		name  string
		total float64
		port  string
	}{
		{"condition holds", 150, models.PortTrue},
		{"condition fails", 50, models.PortFalse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := map[string]any{"total": tt.total}

			outcome, err := executor.Execute(context.Background(), Request{
				Node:      flowNode(models.SubtypeIf, map[string]any{"condition": "total > 100"}),
				Input:     input,
				Execution: executionContext(),
			})

			require.NoError(t, err)
			assert.Equal(t, tt.port, outcome.OutputPort)
			assert.Equal(t, input, outcome.OutputData)
		})
	}
}

func TestIfExecutor_InvalidConditionIsPermanent(t *testing.T) {
	executor := NewIfExecutor()

	_, err := executor.Execute(context.Background(), Request{
		Node:      flowNode(models.SubtypeIf, map[string]any{"condition": "total >"}),
		Input:     map[string]any{"total": float64(1)},
		Execution: executionContext(),
	})

	var nodeErr *models.NodeError

	require.ErrorAs(t, err, &nodeErr)
	assert.Equal(t, models.ErrorKindPermanent, nodeErr.Kind)
}

func TestFilterExecutor_NonMatchingIsSkippedNotError(t *testing.T) {
	executor := NewFilterExecutor()

	outcome, err := executor.Execute(context.Background(), Request{
		Node:      flowNode(models.SubtypeFilter, map[string]any{"condition": `status == "active"`}),
		Input:     map[string]any{"status": "archived"},
		Execution: executionContext(),
	})

	require.NoError(t, err)
	assert.Equal(t, models.NodeStatusSkipped, outcome.Status)
	assert.Nil(t, outcome.OutputData)

	outcome, err = executor.Execute(context.Background(), Request{
		Node:      flowNode(models.SubtypeFilter, map[string]any{"condition": `status == "active"`}),
		Input:     map[string]any{"status": "active"},
		Execution: executionContext(),
	})

	require.NoError(t, err)
	assert.Equal(t, models.NodeStatusSuccess, outcome.Status)
	assert.Equal(t, "active", outcome.OutputData["status"])
}

func TestForEachExecutor_IterationsFollowCollectionOrder(t *testing.T) {
	executor := NewForEachExecutor()

	outcome, err := executor.Execute(context.Background(), Request{
		Node: flowNode(models.SubtypeForEach, map[string]any{"items_source": "order.lines"}),
		Input: map[string]any{
			"order": map[string]any{
				"lines": []any{"first", "second", "third"},
			},
		},
		Execution: executionContext(),
	})

	require.NoError(t, err)
	assert.Equal(t, 3, outcome.OutputData["count"])
	require.Len(t, outcome.Iterations, 3)

	for i, expected := range []string{"first", "second", "third"} {
		assert.Equal(t, i, outcome.Iterations[i]["index"])
		assert.Equal(t, expected, outcome.Iterations[i]["item"])
	}
}

func TestForEachExecutor_MissingOrNonArraySource(t *testing.T) {
	executor := NewForEachExecutor()

	_, err := executor.Execute(context.Background(), Request{
		Node:      flowNode(models.SubtypeForEach, map[string]any{"items_source": "order.lines"}),
		Input:     map[string]any{},
		Execution: executionContext(),
	})
	require.Error(t, err)

	_, err = executor.Execute(context.Background(), Request{
		Node:      flowNode(models.SubtypeForEach, map[string]any{"items_source": "order"}),
		Input:     map[string]any{"order": "not an array"},
		Execution: executionContext(),
	})

	var nodeErr *models.NodeError

	require.ErrorAs(t, err, &nodeErr)
	assert.Equal(t, models.ErrorKindPermanent, nodeErr.Kind)
}
