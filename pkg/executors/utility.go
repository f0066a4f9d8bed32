package executors

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/weftworks/weft/pkg/models"
)

// UtilityExecutor runs small side-effect-free tool operations.
type UtilityExecutor struct {
	// now is swapped out in tests.
	now func() time.Time
}

// NewUtilityExecutor returns the utility tool executor.
func NewUtilityExecutor() *UtilityExecutor {
	return &UtilityExecutor{now: time.Now}
}

func (e *UtilityExecutor) Execute(_ context.Context, req Request) (*Outcome, error) {
	operation, _ := req.Node.Parameters["operation"].(string)

	var output map[string]any

	switch operation {
	case "echo":
		output = map[string]any{"echo": req.Input}
	case "uuid":
		output = map[string]any{"uuid": uuid.NewString()}
	case "now":
		now := e.now().UTC()
		output = map[string]any{
			"timestamp": now.Format(time.RFC3339),
			"unix":      now.Unix(),
		}
	default:
		return nil, permanentError("utility node %q: unsupported operation %q", req.Node.ID, operation)
	}

	return &Outcome{Status: models.NodeStatusSuccess, OutputData: output}, nil
}
