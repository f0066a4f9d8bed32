package web

import (
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/weftworks/weft/pkg/engine"
	"github.com/weftworks/weft/pkg/models"
	"github.com/weftworks/weft/pkg/persistence"
)

// APIHandlers serves the workflow and execution endpoints. Workflows are
// stored as authored; validation gates execution, not storage.
type APIHandlers struct {
	store     persistence.Persistence
	engine    *engine.Engine
	validator *validator.Validate
	logger    *slog.Logger
}

func NewAPIHandlers(store persistence.Persistence, eng *engine.Engine, validate *validator.Validate, logger *slog.Logger) *APIHandlers {
	return &APIHandlers{
		store:     store,
		engine:    eng,
		validator: validate,
		logger:    logger,
	}
}

func (h *APIHandlers) GetWorkflows(c fiber.Ctx) error {
	workflows, err := h.store.Workflows(c.Context())
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(workflows)
}

func (h *APIHandlers) GetWorkflow(c fiber.Ctx) error {
	workflow, err := h.store.WorkflowByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleEngineError(c, err)
	}

	return c.JSON(workflow)
}

func (h *APIHandlers) CreateWorkflow(c fiber.Ctx) error {
	var req CreateWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "invalid JSON body")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	workflow := &models.Workflow{
		ID:          uuid.NewString(),
		Name:        req.Name,
		Description: req.Description,
		Nodes:       req.Nodes,
		Connections: req.Connections,
		Triggers:    req.Triggers,
		StaticData:  req.StaticData,
		Settings:    req.Settings,
		Owner:       req.Owner,
	}

	if err := h.store.SaveWorkflow(c.Context(), workflow); err != nil {
		return internalError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(workflow)
}

func (h *APIHandlers) UpdateWorkflow(c fiber.Ctx) error {
	var req UpdateWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "invalid JSON body")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	existing, err := h.store.WorkflowByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleEngineError(c, err)
	}

	if req.Name != nil {
		existing.Name = *req.Name
	}

	if req.Description != nil {
		existing.Description = *req.Description
	}

	if req.Nodes != nil {
		existing.Nodes = req.Nodes
	}

	if req.Connections != nil {
		existing.Connections = req.Connections
	}

	if req.Triggers != nil {
		existing.Triggers = req.Triggers
	}

	if req.StaticData != nil {
		existing.StaticData = req.StaticData
	}

	if req.Settings != nil {
		existing.Settings = *req.Settings
	}

	if err := h.store.SaveWorkflow(c.Context(), existing); err != nil {
		return internalError(c, err)
	}

	return c.JSON(existing)
}

func (h *APIHandlers) DeleteWorkflow(c fiber.Ctx) error {
	if err := h.store.DeleteWorkflow(c.Context(), c.Params("id")); err != nil {
		return handleEngineError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// ValidateWorkflow runs static validation and reports every finding without
// persisting anything.
func (h *APIHandlers) ValidateWorkflow(c fiber.Ctx) error {
	workflow, err := h.store.WorkflowByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleEngineError(c, err)
	}

	result := h.engine.ValidateWorkflow(workflow)

	return c.JSON(fiber.Map{
		"valid":    result.Valid(),
		"errors":   result.Errors,
		"warnings": result.Warnings,
	})
}

func (h *APIHandlers) StartExecution(c fiber.Ctx) error {
	var req StartExecutionRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c, "invalid JSON body")
		}
	}

	workflow, err := h.store.WorkflowByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleEngineError(c, err)
	}

	record, err := h.engine.SubmitExecution(c.Context(), workflow, req.TriggerData, req.UserID)
	if err != nil {
		return handleEngineError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(record)
}

func (h *APIHandlers) GetWorkflowExecutions(c fiber.Ctx) error {
	id := c.Params("id")

	if _, err := h.store.WorkflowByID(c.Context(), id); err != nil {
		return handleEngineError(c, err)
	}

	records, err := h.store.ExecutionsByWorkflow(c.Context(), id)
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(records)
}

func (h *APIHandlers) GetExecution(c fiber.Ctx) error {
	record, err := h.engine.GetExecutionStatus(c.Context(), c.Params("id"))
	if err != nil {
		return handleEngineError(c, err)
	}

	return c.JSON(record)
}

func (h *APIHandlers) ResumeExecution(c fiber.Ctx) error {
	var req ResumeExecutionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "invalid JSON body")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	record, err := h.engine.ResumeExecution(c.Context(), c.Params("id"), map[string]any{
		"response": req.Response,
	})
	if err != nil {
		return handleEngineError(c, err)
	}

	return c.JSON(record)
}

func (h *APIHandlers) CancelExecution(c fiber.Ctx) error {
	record, err := h.engine.CancelExecution(c.Context(), c.Params("id"))
	if err != nil {
		return handleEngineError(c, err)
	}

	return c.JSON(record)
}

// TriggerWebhook starts an execution of a workflow that carries an enabled
// webhook trigger node. The request body becomes the trigger data.
func (h *APIHandlers) TriggerWebhook(c fiber.Ctx) error {
	workflow, err := h.store.WorkflowByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleEngineError(c, err)
	}

	if webhookTrigger(workflow) == nil {
		return notFound(c, "workflow has no enabled webhook trigger")
	}

	var triggerData map[string]any
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&triggerData); err != nil {
			return badRequest(c, "invalid JSON body")
		}
	}

	record, err := h.engine.SubmitExecution(c.Context(), workflow, triggerData, workflow.Owner)
	if err != nil {
		return handleEngineError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(record)
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	status := "healthy"
	httpStatus := fiber.StatusOK

	if err := h.store.HealthCheck(c.Context()); err != nil {
		status = "unhealthy"
		httpStatus = fiber.StatusInternalServerError

		h.logger.Error("health check failed", "error", err)
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":    status,
		"timestamp": time.Now().UTC(),
	})
}

func webhookTrigger(w *models.Workflow) *models.Node {
	for _, node := range w.TriggerNodes() {
		if node.Subtype == models.SubtypeWebhook && !node.Disabled {
			return node
		}
	}

	return nil
}
