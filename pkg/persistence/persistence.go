// Package persistence is the storage abstraction for workflow definitions
// and execution records. The engine writes through it after every state
// transition; implementations decide durability.
package persistence

import (
	"context"

	"github.com/weftworks/weft/pkg/models"
)

// WorkflowRepository stores workflow definitions.
type WorkflowRepository interface {
	Workflows(ctx context.Context) ([]*models.Workflow, error)
	SaveWorkflow(ctx context.Context, workflow *models.Workflow) error
	WorkflowByID(ctx context.Context, id string) (*models.Workflow, error)
	DeleteWorkflow(ctx context.Context, id string) error
}

// ExecutionRepository stores execution records. SaveExecution overwrites
// the full record snapshot; the engine calls it after every transition.
type ExecutionRepository interface {
	SaveExecution(ctx context.Context, record *models.ExecutionRecord) error
	ExecutionByID(ctx context.Context, id string) (*models.ExecutionRecord, error)
	ExecutionsByWorkflow(ctx context.Context, workflowID string) ([]*models.ExecutionRecord, error)
	// ExecutionsByStatus lists executions currently in the given status,
	// used by the timeout sweep to find PAUSED runs.
	ExecutionsByStatus(ctx context.Context, status models.ExecutionStatus) ([]*models.ExecutionRecord, error)
}

// Persistence is the full storage surface a deployment wires in.
type Persistence interface {
	WorkflowRepository
	ExecutionRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}
