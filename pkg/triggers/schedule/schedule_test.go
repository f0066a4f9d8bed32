package schedule

import (
	"context"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weftworks/weft/pkg/models"
	"github.com/weftworks/weft/pkg/persistence/file"
)

type fakeSubmitter struct {
	mu        sync.Mutex
	workflows []string
	payloads  []map[string]any
}

func (f *fakeSubmitter) SubmitExecution(_ context.Context, workflow *models.Workflow, triggerData map[string]any, _ string) (*models.ExecutionRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.workflows = append(f.workflows, workflow.ID)
	f.payloads = append(f.payloads, triggerData)

	return &models.ExecutionRecord{ID: "exec-1", WorkflowID: workflow.ID, Status: models.ExecutionStatusSuccess}, nil
}

func cronWorkflow(id, expr string) *models.Workflow {
	return &models.Workflow{
		ID:   id,
		Name: "nightly report",
		Nodes: []*models.Node{
			{
				ID: "tick", Name: "tick", Type: models.NodeTypeTrigger, Subtype: models.SubtypeCron,
				Parameters: map[string]any{"cron": expr},
			},
		},
		Triggers: []string{"tick"},
	}
}

func newTestScheduler(t *testing.T, submitter Submitter) (*Scheduler, *file.Persistence) {
	t.Helper()

	store := file.NewPersistence(t.TempDir())
	logger := slog.Default()

	return NewScheduler(store, submitter, logger), store
}

func TestArmAndDisarm(t *testing.T) {
	scheduler, _ := newTestScheduler(t, &fakeSubmitter{})

	require.NoError(t, scheduler.Arm(cronWorkflow("wf-1", "0 9 * * *")))
	assert.Equal(t, 1, scheduler.Entries())

	// Re-arming replaces, not duplicates.
	require.NoError(t, scheduler.Arm(cronWorkflow("wf-1", "*/15 * * * *")))
	assert.Equal(t, 1, scheduler.Entries())

	scheduler.Disarm("wf-1")
	assert.Equal(t, 0, scheduler.Entries())
}

func TestArmRejectsInvalidCron(t *testing.T) {
	scheduler, _ := newTestScheduler(t, &fakeSubmitter{})

	err := scheduler.Arm(cronWorkflow("wf-bad", "not a cron"))
	assert.ErrorContains(t, err, "invalid cron expression")

	err = scheduler.Arm(cronWorkflow("wf-empty", ""))
	assert.ErrorIs(t, err, ErrMissingCronExpression)
}

func TestArmSkipsNonCronAndDisabledTriggers(t *testing.T) {
	scheduler, _ := newTestScheduler(t, &fakeSubmitter{})

	workflow := &models.Workflow{
		ID:   "wf-mixed",
		Name: "mixed triggers",
		Nodes: []*models.Node{
			{ID: "manual", Name: "manual", Type: models.NodeTypeTrigger, Subtype: models.SubtypeManual},
			{
				ID: "off", Name: "off", Type: models.NodeTypeTrigger, Subtype: models.SubtypeCron,
				Parameters: map[string]any{"cron": "0 9 * * *"},
				Disabled:   true,
			},
		},
		Triggers: []string{"manual", "off"},
	}

	require.NoError(t, scheduler.Arm(workflow))
	assert.Equal(t, 0, scheduler.Entries())
}

func TestFireSubmitsWithTriggerPayload(t *testing.T) {
	submitter := &fakeSubmitter{}
	scheduler, store := newTestScheduler(t, submitter)

	workflow := cronWorkflow("wf-fire", "0 9 * * *")
	require.NoError(t, store.SaveWorkflow(context.Background(), workflow))

	scheduler.fire("wf-fire", "tick", "0 9 * * *")

	require.Len(t, submitter.workflows, 1)
	assert.Equal(t, "wf-fire", submitter.workflows[0])
	assert.Equal(t, "tick", submitter.payloads[0]["trigger_node_id"])
	assert.Equal(t, "0 9 * * *", submitter.payloads[0]["cron"])
	assert.NotEmpty(t, submitter.payloads[0]["fired_at"])
}

func TestFireUnknownWorkflowDoesNotSubmit(t *testing.T) {
	submitter := &fakeSubmitter{}
	scheduler, _ := newTestScheduler(t, submitter)

	scheduler.fire("wf-missing", "tick", "0 9 * * *")

	assert.Empty(t, submitter.workflows)
}

func TestStartArmsStoredWorkflows(t *testing.T) {
	submitter := &fakeSubmitter{}
	scheduler, store := newTestScheduler(t, submitter)

	require.NoError(t, store.SaveWorkflow(context.Background(), cronWorkflow("wf-a", "0 9 * * *")))
	require.NoError(t, store.SaveWorkflow(context.Background(), cronWorkflow("wf-b", "*/5 * * * *")))

	require.NoError(t, scheduler.Start(context.Background()))
	defer scheduler.Stop()

	assert.Equal(t, 2, scheduler.Entries())
}
