// Package executors implements the polymorphic node executor family. Each
// executor runs one node given resolved input data and reports a structured
// outcome; failures come back as classified NodeErrors so the engine's retry
// policy can act on the kind rather than on error text.
package executors

import (
	"context"
	"fmt"
	"sync"

	"github.com/weftworks/weft/pkg/models"
)

// Request carries everything a node invocation needs.
type Request struct {
	Node  *models.Node
	Input map[string]any
	// Execution identifies the owning run and its variables.
	Execution models.ExecutionContext
	// ResumePayload is the out-of-band response supplied when a paused node
	// is resumed. Nil on first invocation.
	ResumePayload map[string]any
}

// Outcome is one invocation's result before the engine stamps timing.
type Outcome struct {
	// Status defaults to SUCCESS when empty.
	Status     models.NodeStatus
	OutputData map[string]any
	// OutputPort routes downstream dispatch; empty means "main".
	OutputPort string
	// Iterations holds per-item outputs for fan-out nodes. Each entry
	// becomes its own recorded result.
	Iterations []map[string]any
	// InteractionID identifies the pending human interaction when Status
	// is PAUSED.
	InteractionID string
}

// StatusOrDefault returns the outcome status, defaulting to SUCCESS.
func (o *Outcome) StatusOrDefault() models.NodeStatus {
	if o.Status == "" {
		return models.NodeStatusSuccess
	}

	return o.Status
}

// Executor runs nodes of one (type, subtype) family.
type Executor interface {
	Execute(ctx context.Context, req Request) (*Outcome, error)
}

// Registry dispatches nodes to executors. Lookup is by exact
// (type, subtype) first, then by type with the subtype wildcard.
type Registry struct {
	mu        sync.RWMutex
	executors map[string]Executor
}

// SubtypeAny registers an executor for every subtype of a node type.
const SubtypeAny = "*"

// NewRegistry returns an empty executor registry.
func NewRegistry() *Registry {
	return &Registry{executors: make(map[string]Executor)}
}

// Register binds an executor to a (type, subtype) pair.
func (r *Registry) Register(nodeType models.NodeType, subtype string, executor Executor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.executors[executorKey(nodeType, subtype)] = executor
}

// ExecutorFor returns the executor responsible for the given node.
func (r *Registry) ExecutorFor(node *models.Node) (Executor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if executor, ok := r.executors[executorKey(node.Type, node.Subtype)]; ok {
		return executor, nil
	}

	if executor, ok := r.executors[executorKey(node.Type, SubtypeAny)]; ok {
		return executor, nil
	}

	return nil, &models.NodeError{
		Message: fmt.Sprintf("no executor registered for node type %s/%s", node.Type, node.Subtype),
		Kind:    models.ErrorKindInternal,
	}
}

func executorKey(nodeType models.NodeType, subtype string) string {
	return string(nodeType) + ":" + subtype
}

func temporaryError(format string, args ...any) *models.NodeError {
	return &models.NodeError{Message: fmt.Sprintf(format, args...), Kind: models.ErrorKindTemporary}
}

func permanentError(format string, args ...any) *models.NodeError {
	return &models.NodeError{Message: fmt.Sprintf(format, args...), Kind: models.ErrorKindPermanent}
}

func internalError(format string, args ...any) *models.NodeError {
	return &models.NodeError{Message: fmt.Sprintf(format, args...), Kind: models.ErrorKindInternal}
}
