package main

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weftworks/weft/pkg/engine"
	"github.com/weftworks/weft/pkg/eventbus"
	"github.com/weftworks/weft/pkg/executors"
	"github.com/weftworks/weft/pkg/mapping"
	"github.com/weftworks/weft/pkg/models"
	"github.com/weftworks/weft/pkg/persistence/file"
	"github.com/weftworks/weft/pkg/specs"
	"github.com/weftworks/weft/pkg/validation"
)

func setupTestApp(t *testing.T) *fiber.App {
	t.Helper()

	store := file.NewPersistence(t.TempDir())
	bus := eventbus.NewInProcessEventBus(slog.Default())
	t.Cleanup(func() {
		_ = bus.Close()
	})

	eng := engine.New(engine.Options{
		Executors: executors.NewDefaultRegistry(executors.Dependencies{}),
		Validator: validation.NewValidator(specs.NewDefaultRegistry()),
		Mapping:   mapping.NewProcessor(mapping.NewFunctionRegistry()),
		Store:     store,
		Publisher: bus,
		Logger:    slog.Default(),
	})
	t.Cleanup(eng.Close)

	return NewAPI(slog.Default(), store, eng).App()
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body any) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader

	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)

		reader = bytes.NewReader(encoded)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := app.Test(req)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())

	return resp, raw
}

func sampleWorkflowBody() map[string]any {
	return map[string]any{
		"name":  "Order Pipeline",
		"owner": "u-1",
		"nodes": []map[string]any{
			{"id": "start", "name": "start", "type": "TRIGGER", "subtype": "MANUAL"},
			{"id": "echo", "name": "echo", "type": "TOOL", "subtype": "UTILITY", "parameters": map[string]any{"operation": "echo"}},
		},
		"connections": map[string]any{
			"start": map[string]any{
				"MAIN": []map[string]any{{"target_node": "echo"}},
			},
		},
		"triggers": []string{"start"},
	}
}

func createWorkflow(t *testing.T, app *fiber.App) models.Workflow {
	t.Helper()

	resp, raw := doJSON(t, app, http.MethodPost, "/workflows", sampleWorkflowBody())
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))

	var created models.Workflow
	require.NoError(t, json.Unmarshal(raw, &created))
	require.NotEmpty(t, created.ID)

	return created
}

func TestRootEndpoint(t *testing.T) {
	app := setupTestApp(t)

	resp, raw := doJSON(t, app, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Weft API", string(raw))
}

func TestWorkflowCRUD(t *testing.T) {
	app := setupTestApp(t)
	created := createWorkflow(t, app)

	resp, raw := doJSON(t, app, http.MethodGet, "/workflows/"+created.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var fetched models.Workflow
	require.NoError(t, json.Unmarshal(raw, &fetched))
	assert.Equal(t, "Order Pipeline", fetched.Name)
	assert.Len(t, fetched.Nodes, 2)

	resp, raw = doJSON(t, app, http.MethodPatch, "/workflows/"+created.ID, map[string]any{
		"description": "ships orders",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(raw, &fetched))
	assert.Equal(t, "ships orders", fetched.Description)
	assert.Equal(t, "Order Pipeline", fetched.Name)

	resp, _ = doJSON(t, app, http.MethodDelete, "/workflows/"+created.ID, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodGet, "/workflows/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCreateWorkflowRejectsMissingName(t *testing.T) {
	app := setupTestApp(t)

	body := sampleWorkflowBody()
	delete(body, "name")

	resp, _ := doJSON(t, app, http.MethodPost, "/workflows", body)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestValidateWorkflow(t *testing.T) {
	app := setupTestApp(t)
	created := createWorkflow(t, app)

	resp, raw := doJSON(t, app, http.MethodPost, "/workflows/"+created.ID+"/validate", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result struct {
		Valid  bool               `json:"valid"`
		Errors []validation.Issue `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(raw, &result))
	assert.True(t, result.Valid)
	assert.Empty(t, result.Errors)
}

func TestStartAndFetchExecution(t *testing.T) {
	app := setupTestApp(t)
	created := createWorkflow(t, app)

	resp, raw := doJSON(t, app, http.MethodPost, "/workflows/"+created.ID+"/executions", map[string]any{
		"trigger_data": map[string]any{"order_id": "o-42"},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))

	var record models.ExecutionRecord
	require.NoError(t, json.Unmarshal(raw, &record))
	assert.Equal(t, models.ExecutionStatusSuccess, record.Status)
	assert.Equal(t, 2, record.CompletedNodes)

	resp, raw = doJSON(t, app, http.MethodGet, "/executions/"+record.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(raw, &record))
	assert.Equal(t, models.ExecutionStatusSuccess, record.Status)

	resp, raw = doJSON(t, app, http.MethodGet, "/workflows/"+created.ID+"/executions", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var records []models.ExecutionRecord
	require.NoError(t, json.Unmarshal(raw, &records))
	assert.Len(t, records, 1)
}

func TestStartExecutionInvalidWorkflow(t *testing.T) {
	app := setupTestApp(t)

	body := sampleWorkflowBody()
	body["triggers"] = []string{}
	body["connections"] = map[string]any{}

	resp, raw := doJSON(t, app, http.MethodPost, "/workflows", body)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created models.Workflow
	require.NoError(t, json.Unmarshal(raw, &created))

	resp, _ = doJSON(t, app, http.MethodPost, "/workflows/"+created.ID+"/executions", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestResumeTerminalExecutionConflicts(t *testing.T) {
	app := setupTestApp(t)
	created := createWorkflow(t, app)

	resp, raw := doJSON(t, app, http.MethodPost, "/workflows/"+created.ID+"/executions", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var record models.ExecutionRecord
	require.NoError(t, json.Unmarshal(raw, &record))

	resp, _ = doJSON(t, app, http.MethodPost, "/executions/"+record.ID+"/resume", map[string]any{
		"response": "yes",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestCancelUnknownExecution(t *testing.T) {
	app := setupTestApp(t)

	resp, _ := doJSON(t, app, http.MethodPost, "/executions/nope/cancel", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestWebhookRequiresWebhookTrigger(t *testing.T) {
	app := setupTestApp(t)
	created := createWorkflow(t, app)

	resp, _ := doJSON(t, app, http.MethodPost, "/webhooks/"+created.ID, map[string]any{"ping": true})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestWebhookTriggersExecution(t *testing.T) {
	app := setupTestApp(t)

	body := sampleWorkflowBody()
	body["nodes"] = []map[string]any{
		{"id": "hook", "name": "hook", "type": "TRIGGER", "subtype": "WEBHOOK"},
		{"id": "echo", "name": "echo", "type": "TOOL", "subtype": "UTILITY", "parameters": map[string]any{"operation": "echo"}},
	}
	body["connections"] = map[string]any{
		"hook": map[string]any{"MAIN": []map[string]any{{"target_node": "echo"}}},
	}
	body["triggers"] = []string{"hook"}

	resp, raw := doJSON(t, app, http.MethodPost, "/workflows", body)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created models.Workflow
	require.NoError(t, json.Unmarshal(raw, &created))

	resp, raw = doJSON(t, app, http.MethodPost, "/webhooks/"+created.ID, map[string]any{"event": "push"})
	require.Equal(t, http.StatusAccepted, resp.StatusCode, string(raw))

	var record models.ExecutionRecord
	require.NoError(t, json.Unmarshal(raw, &record))
	assert.Equal(t, models.ExecutionStatusSuccess, record.Status)

	echoResult := record.ResultFor("echo")
	require.NotNil(t, echoResult)

	echoed, ok := echoResult.OutputData["echo"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "push", echoed["event"])
}

func TestHealthEndpoint(t *testing.T) {
	app := setupTestApp(t)

	resp, raw := doJSON(t, app, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var health map[string]any
	require.NoError(t, json.Unmarshal(raw, &health))
	assert.Equal(t, "healthy", health["status"])
}
