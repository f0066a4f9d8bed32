package executors

import (
	"context"

	"github.com/expr-lang/expr"

	"github.com/weftworks/weft/pkg/mapping"
	"github.com/weftworks/weft/pkg/models"
)

// IfExecutor evaluates a boolean condition over the input and routes the
// unchanged input to the "true" or "false" output port.
type IfExecutor struct{}

// NewIfExecutor returns the IF flow executor.
func NewIfExecutor() *IfExecutor {
	return &IfExecutor{}
}

func (e *IfExecutor) Execute(_ context.Context, req Request) (*Outcome, error) {
	matched, err := evaluateFlowCondition(req, "if")
	if err != nil {
		return nil, err
	}

	port := models.PortTrue
	if !matched {
		port = models.PortFalse
	}

	return &Outcome{
		Status:     models.NodeStatusSuccess,
		OutputData: req.Input,
		OutputPort: port,
	}, nil
}

// FilterExecutor passes input through when its condition holds and reports
// SKIPPED otherwise. A skipped filter is not a failure.
type FilterExecutor struct{}

// NewFilterExecutor returns the FILTER flow executor.
func NewFilterExecutor() *FilterExecutor {
	return &FilterExecutor{}
}

func (e *FilterExecutor) Execute(_ context.Context, req Request) (*Outcome, error) {
	matched, err := evaluateFlowCondition(req, "filter")
	if err != nil {
		return nil, err
	}

	if !matched {
		return &Outcome{Status: models.NodeStatusSkipped}, nil
	}

	return &Outcome{Status: models.NodeStatusSuccess, OutputData: req.Input}, nil
}

// ForEachExecutor iterates the collection at items_source. Every item
// yields its own iteration output, ordered as the collection is ordered.
type ForEachExecutor struct{}

// NewForEachExecutor returns the FOR_EACH flow executor.
func NewForEachExecutor() *ForEachExecutor {
	return &ForEachExecutor{}
}

func (e *ForEachExecutor) Execute(_ context.Context, req Request) (*Outcome, error) {
	source, _ := req.Node.Parameters["items_source"].(string)
	if source == "" {
		return nil, permanentError("for_each node %q missing items_source parameter", req.Node.ID)
	}

	raw, found := mapping.Extract(req.Input, source)
	if !found {
		return nil, permanentError("for_each node %q: items_source %q not present in input", req.Node.ID, source)
	}

	items, ok := raw.([]any)
	if !ok {
		return nil, permanentError("for_each node %q: items_source %q is not an array", req.Node.ID, source)
	}

	iterations := make([]map[string]any, 0, len(items))
	for index, item := range items {
		iterations = append(iterations, map[string]any{
			"index": index,
			"item":  item,
		})
	}

	return &Outcome{
		Status:     models.NodeStatusSuccess,
		OutputData: map[string]any{"count": len(items)},
		Iterations: iterations,
	}, nil
}

// evaluateFlowCondition compiles and runs the node's condition expression
// with the input as environment.
func evaluateFlowCondition(req Request, kind string) (bool, error) {
	condition, _ := req.Node.Parameters["condition"].(string)
	if condition == "" {
		return false, permanentError("%s node %q missing condition parameter", kind, req.Node.ID)
	}

	env := map[string]any{"input": req.Input}
	for key, value := range req.Input {
		env[key] = value
	}

	program, err := expr.Compile(condition, expr.Env(env), expr.AsBool())
	if err != nil {
		return false, permanentError("%s node %q: invalid condition %q: %v", kind, req.Node.ID, condition, err)
	}

	result, err := expr.Run(program, env)
	if err != nil {
		return false, permanentError("%s node %q: condition evaluation failed: %v", kind, req.Node.ID, err)
	}

	matched, ok := result.(bool)
	if !ok {
		return false, permanentError("%s node %q: condition %q did not yield a boolean (got %T)", kind, req.Node.ID, condition, result)
	}

	return matched, nil
}
