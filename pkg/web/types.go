// Package web provides the HTTP handlers and request/response types of the
// workflow API.
package web

import "github.com/weftworks/weft/pkg/models"

// CreateWorkflowRequest is the request body for creating a workflow. The
// graph may be saved in any state; validation gates execution, not storage.
type CreateWorkflowRequest struct {
	Name        string                  `json:"name"        validate:"required,min=3"`
	Description string                  `json:"description"`
	Nodes       []*models.Node          `json:"nodes"`
	Connections models.ConnectionMap    `json:"connections"`
	Triggers    []string                `json:"triggers"`
	StaticData  map[string]any          `json:"static_data"`
	Settings    models.WorkflowSettings `json:"settings"`
	Owner       string                  `json:"owner"       validate:"required"`
}

// UpdateWorkflowRequest is the request body for updating a workflow. All
// fields are optional to support partial updates.
type UpdateWorkflowRequest struct {
	Name        *string                  `json:"name,omitempty"        validate:"omitempty,min=3"`
	Description *string                  `json:"description,omitempty"`
	Nodes       []*models.Node           `json:"nodes,omitempty"`
	Connections models.ConnectionMap     `json:"connections,omitempty"`
	Triggers    []string                 `json:"triggers,omitempty"`
	StaticData  map[string]any           `json:"static_data,omitempty"`
	Settings    *models.WorkflowSettings `json:"settings,omitempty"`
}

// StartExecutionRequest is the request body for starting an execution.
type StartExecutionRequest struct {
	TriggerData map[string]any `json:"trigger_data"`
	UserID      string         `json:"user_id"`
}

// ResumeExecutionRequest carries the human response for a paused execution.
type ResumeExecutionRequest struct {
	Response string `json:"response" validate:"required"`
}
