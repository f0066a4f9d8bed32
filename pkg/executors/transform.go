package executors

import (
	"context"
	"encoding/json"

	"github.com/weftworks/weft/pkg/mapping"
	"github.com/weftworks/weft/pkg/models"
)

// TransformExecutor reshapes its input through a data mapping declared in
// the node's "mapping" parameter.
type TransformExecutor struct {
	processor *mapping.Processor
}

// NewTransformExecutor builds the executor on a shared mapping processor.
func NewTransformExecutor(processor *mapping.Processor) *TransformExecutor {
	return &TransformExecutor{processor: processor}
}

func (e *TransformExecutor) Execute(_ context.Context, req Request) (*Outcome, error) {
	raw, present := req.Node.Parameters["mapping"]
	if !present {
		return nil, permanentError("transform node %q missing mapping parameter", req.Node.ID)
	}

	dataMapping, err := decodeMapping(raw)
	if err != nil {
		return nil, permanentError("transform node %q: %v", req.Node.ID, err)
	}

	output, transformErr := e.processor.Transform(req.Input, dataMapping, req.Execution)
	if transformErr != nil {
		// Mapping failures are the receiving node's error, never retried.
		return nil, &models.NodeError{Message: transformErr.Error(), Kind: models.ErrorKindPermanent}
	}

	return &Outcome{Status: models.NodeStatusSuccess, OutputData: output}, nil
}

func decodeMapping(raw any) (*models.DataMapping, error) {
	encoded, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}

	var dataMapping models.DataMapping
	if err := json.Unmarshal(encoded, &dataMapping); err != nil {
		return nil, err
	}

	if dataMapping.Type == "" {
		dataMapping.Type = models.MappingTypeDirect
	}

	return &dataMapping, nil
}
