package executors

import (
	"context"
	"time"

	"github.com/weftworks/weft/pkg/models"
)

// TriggerExecutor seeds an execution with the trigger payload. Manual, cron
// and webhook triggers differ only in how they are armed; once invoked they
// all emit the payload unchanged.
type TriggerExecutor struct{}

// NewTriggerExecutor returns the trigger executor.
func NewTriggerExecutor() *TriggerExecutor {
	return &TriggerExecutor{}
}

func (e *TriggerExecutor) Execute(_ context.Context, req Request) (*Outcome, error) {
	output := map[string]any{
		"triggered_at": time.Now().UTC().Format(time.RFC3339),
		"trigger_type": req.Node.Subtype,
	}

	for key, value := range req.Input {
		output[key] = value
	}

	return &Outcome{Status: models.NodeStatusSuccess, OutputData: output}, nil
}
