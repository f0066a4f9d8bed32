// Package file is the file-system persistence backend: one JSON document
// per workflow and per execution record, under a common root directory.
// Suited to development and single-node deployments.
package file

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/weftworks/weft/pkg/models"
	"github.com/weftworks/weft/pkg/persistence"
)

const (
	workflowsDir  = "workflows"
	executionsDir = "executions"
	fileMode      = 0o600
	dirMode       = 0o750
)

// Persistence implements persistence.Persistence on the local file system.
type Persistence struct {
	root string
	mu   sync.RWMutex
}

// NewPersistence creates a file persistence rooted at the given directory.
// A file:// prefix is stripped so connection-string style configuration
// works unchanged.
func NewPersistence(root string) *Persistence {
	return &Persistence{root: strings.TrimPrefix(root, "file://")}
}

// HealthCheck verifies the root directory exists.
func (p *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(p.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

// Close is a no-op for file persistence.
func (p *Persistence) Close(_ context.Context) error {
	return nil
}

// Workflows returns every stored workflow.
func (p *Persistence) Workflows(ctx context.Context) ([]*models.Workflow, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	ids, err := p.list(workflowsDir)
	if err != nil {
		return nil, err
	}

	workflows := make([]*models.Workflow, 0, len(ids))

	for _, id := range ids {
		var workflow models.Workflow
		if err := p.read(workflowsDir, id, &workflow); err != nil {
			return nil, persistence.NewStoreError("list workflows", id, err)
		}

		workflows = append(workflows, &workflow)
	}

	return workflows, nil
}

// SaveWorkflow writes the workflow document, stamping timestamps.
func (p *Persistence) SaveWorkflow(_ context.Context, workflow *models.Workflow) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now().UTC()
	if workflow.CreatedAt.IsZero() {
		workflow.CreatedAt = now
	}

	workflow.UpdatedAt = now

	if err := p.write(workflowsDir, workflow.ID, workflow); err != nil {
		return persistence.NewStoreError("save workflow", workflow.ID, err)
	}

	return nil
}

// WorkflowByID loads one workflow.
func (p *Persistence) WorkflowByID(_ context.Context, id string) (*models.Workflow, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var workflow models.Workflow

	err := p.read(workflowsDir, id, &workflow)
	if os.IsNotExist(err) {
		return nil, persistence.ErrWorkflowNotFound
	}

	if err != nil {
		return nil, persistence.NewStoreError("get workflow", id, err)
	}

	return &workflow, nil
}

// DeleteWorkflow removes the workflow document.
func (p *Persistence) DeleteWorkflow(_ context.Context, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	err := os.Remove(p.path(workflowsDir, id))
	if os.IsNotExist(err) {
		return persistence.ErrWorkflowNotFound
	}

	if err != nil {
		return persistence.NewStoreError("delete workflow", id, err)
	}

	return nil
}

// SaveExecution overwrites the execution record snapshot.
func (p *Persistence) SaveExecution(_ context.Context, record *models.ExecutionRecord) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.write(executionsDir, record.ID, record); err != nil {
		return persistence.NewStoreError("save execution", record.ID, err)
	}

	return nil
}

// ExecutionByID loads one execution record.
func (p *Persistence) ExecutionByID(_ context.Context, id string) (*models.ExecutionRecord, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var record models.ExecutionRecord

	err := p.read(executionsDir, id, &record)
	if os.IsNotExist(err) {
		return nil, persistence.ErrExecutionNotFound
	}

	if err != nil {
		return nil, persistence.NewStoreError("get execution", id, err)
	}

	return &record, nil
}

// ExecutionsByWorkflow lists the records belonging to one workflow.
func (p *Persistence) ExecutionsByWorkflow(ctx context.Context, workflowID string) ([]*models.ExecutionRecord, error) {
	return p.filterExecutions(func(record *models.ExecutionRecord) bool {
		return record.WorkflowID == workflowID
	})
}

// ExecutionsByStatus lists records currently in the given status.
func (p *Persistence) ExecutionsByStatus(ctx context.Context, status models.ExecutionStatus) ([]*models.ExecutionRecord, error) {
	return p.filterExecutions(func(record *models.ExecutionRecord) bool {
		return record.Status == status
	})
}

func (p *Persistence) filterExecutions(keep func(*models.ExecutionRecord) bool) ([]*models.ExecutionRecord, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	ids, err := p.list(executionsDir)
	if err != nil {
		return nil, err
	}

	records := make([]*models.ExecutionRecord, 0, len(ids))

	for _, id := range ids {
		var record models.ExecutionRecord
		if err := p.read(executionsDir, id, &record); err != nil {
			return nil, persistence.NewStoreError("list executions", id, err)
		}

		if keep(&record) {
			records = append(records, &record)
		}
	}

	return records, nil
}

func (p *Persistence) path(dir, id string) string {
	return filepath.Clean(path.Join(p.root, dir, id+".json"))
}

func (p *Persistence) list(dir string) ([]string, error) {
	entries, err := os.ReadDir(path.Join(p.root, dir))
	if os.IsNotExist(err) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	ids := make([]string, 0, len(entries))

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}

		ids = append(ids, strings.TrimSuffix(name, ".json"))
	}

	return ids, nil
}

func (p *Persistence) read(dir, id string, out any) error {
	body, err := os.ReadFile(p.path(dir, id))
	if err != nil {
		return err
	}

	return json.Unmarshal(body, out)
}

func (p *Persistence) write(dir, id string, value any) error {
	if err := os.MkdirAll(path.Join(p.root, dir), dirMode); err != nil {
		return fmt.Errorf("failed to create %s directory: %w", dir, err)
	}

	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", id, err)
	}

	return os.WriteFile(p.path(dir, id), data, fileMode)
}
