// Package schedule arms CRON trigger nodes: every stored workflow with a
// cron-subtyped trigger gets a scheduled job that submits a new execution
// when the expression fires.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/weftworks/weft/pkg/models"
	"github.com/weftworks/weft/pkg/persistence"
)

var ErrMissingCronExpression = errors.New("cron trigger node has no cron expression")

// Submitter starts one execution of a workflow. The engine satisfies this.
type Submitter interface {
	SubmitExecution(ctx context.Context, workflow *models.Workflow, triggerData map[string]any, userID string) (*models.ExecutionRecord, error)
}

// Scheduler owns the cron runtime and the armed entries.
type Scheduler struct {
	store     persistence.WorkflowRepository
	submitter Submitter
	logger    *slog.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	entries map[string]cron.EntryID // workflowID/nodeID
}

// NewScheduler builds a scheduler over the given workflow store.
func NewScheduler(store persistence.WorkflowRepository, submitter Submitter, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		store:     store,
		submitter: submitter,
		logger:    logger.With("module", "scheduler"),
		cron: cron.New(cron.WithChain(
			cron.SkipIfStillRunning(cron.DefaultLogger),
			cron.Recover(cron.DefaultLogger),
		)),
		entries: make(map[string]cron.EntryID),
	}
}

// Start arms every stored workflow's cron triggers and starts the runtime.
func (s *Scheduler) Start(ctx context.Context) error {
	workflows, err := s.store.Workflows(ctx)
	if err != nil {
		return fmt.Errorf("failed to load workflows: %w", err)
	}

	for _, workflow := range workflows {
		if err := s.Arm(workflow); err != nil {
			s.logger.Error("failed to arm workflow",
				"workflow_id", workflow.ID, "error", err)
		}
	}

	s.cron.Start()
	s.logger.Info("scheduler started", "entries", len(s.entries))

	return nil
}

// Stop halts the cron runtime and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

// Arm schedules every enabled cron trigger node of the workflow. Re-arming
// a workflow replaces its previous entries.
func (s *Scheduler) Arm(workflow *models.Workflow) error {
	s.Disarm(workflow.ID)

	for _, node := range workflow.TriggerNodes() {
		if node.Subtype != models.SubtypeCron || node.Disabled {
			continue
		}

		expr, _ := node.Parameters["cron"].(string)
		if expr == "" {
			return ErrMissingCronExpression
		}

		if _, err := cron.ParseStandard(expr); err != nil {
			return fmt.Errorf("invalid cron expression %q on node %s: %w", expr, node.ID, err)
		}

		workflowID, nodeID := workflow.ID, node.ID

		entryID, err := s.cron.AddFunc(expr, func() {
			s.fire(workflowID, nodeID, expr)
		})
		if err != nil {
			return fmt.Errorf("failed to schedule node %s: %w", node.ID, err)
		}

		s.mu.Lock()
		s.entries[entryKey(workflowID, nodeID)] = entryID
		s.mu.Unlock()

		s.logger.Info("armed cron trigger",
			"workflow_id", workflowID, "node_id", nodeID, "cron", expr)
	}

	return nil
}

// Disarm removes every entry belonging to the workflow.
func (s *Scheduler) Disarm(workflowID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prefix := workflowID + "/"
	for key, entryID := range s.entries {
		if len(key) > len(prefix) && key[:len(prefix)] == prefix {
			s.cron.Remove(entryID)
			delete(s.entries, key)
		}
	}
}

// Entries reports how many trigger nodes are currently armed.
func (s *Scheduler) Entries() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.entries)
}

// fire reloads the workflow and submits one execution. The reload picks up
// edits made since arming.
func (s *Scheduler) fire(workflowID, nodeID, expr string) {
	ctx := context.Background()

	workflow, err := s.store.WorkflowByID(ctx, workflowID)
	if err != nil {
		s.logger.Error("scheduled workflow vanished",
			"workflow_id", workflowID, "error", err)

		return
	}

	triggerData := map[string]any{
		"trigger_node_id": nodeID,
		"cron":            expr,
		"fired_at":        time.Now().UTC().Format(time.RFC3339),
	}

	record, err := s.submitter.SubmitExecution(ctx, workflow, triggerData, workflow.Owner)
	if err != nil {
		s.logger.Error("scheduled execution failed to submit",
			"workflow_id", workflowID, "node_id", nodeID, "error", err)

		return
	}

	s.logger.Info("scheduled execution submitted",
		"workflow_id", workflowID, "execution_id", record.ID, "status", record.Status)
}

func entryKey(workflowID, nodeID string) string {
	return workflowID + "/" + nodeID
}
