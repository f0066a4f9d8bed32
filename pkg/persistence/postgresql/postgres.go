// Package postgresql is the PostgreSQL persistence backend. Workflow graphs
// and execution histories are stored as JSONB documents with relational
// columns for the fields queries filter on.
package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq" // postgres driver

	"github.com/weftworks/weft/pkg/models"
	"github.com/weftworks/weft/pkg/persistence"
	"github.com/weftworks/weft/pkg/persistence/sqlbase"
)

// Persistence implements persistence.Persistence on PostgreSQL.
type Persistence struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPersistence connects, pings, and migrates the schema.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	if err := database.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	manager := sqlbase.NewMigrationManager(logger, database, migrations())
	if err := manager.RunMigrations(ctx); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Persistence{db: database, logger: logger}, nil
}

// Close closes the database connection.
func (p *Persistence) Close(_ context.Context) error {
	if p.db == nil {
		return nil
	}

	if err := p.db.Close(); err != nil {
		return fmt.Errorf("failed to close database connection: %w", err)
	}

	return nil
}

// HealthCheck verifies the database connection is healthy.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	if err := p.db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

const workflowColumns = `
	id
  , name
  , description
  , nodes
  , connections
  , triggers
  , static_data
  , settings
  , owner
  , created_at
  , updated_at
`

// Workflows returns every non-deleted workflow, newest first.
func (p *Persistence) Workflows(ctx context.Context) ([]*models.Workflow, error) {
	query := `SELECT ` + workflowColumns + `
		FROM workflows
		WHERE deleted_at IS NULL
		ORDER BY created_at DESC
	`

	rows, err := p.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query workflows: %w", err)
	}
	defer p.closeRows(ctx, rows)

	workflows := make([]*models.Workflow, 0)

	for rows.Next() {
		workflow, err := scanWorkflow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workflow: %w", err)
		}

		workflows = append(workflows, workflow)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating workflows: %w", err)
	}

	return workflows, nil
}

// WorkflowByID returns a workflow by its ID.
func (p *Persistence) WorkflowByID(ctx context.Context, id string) (*models.Workflow, error) {
	query := `SELECT ` + workflowColumns + `
		FROM workflows
		WHERE id = $1 AND deleted_at IS NULL
	`

	workflow, err := scanWorkflow(p.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.ErrWorkflowNotFound
	}

	if err != nil {
		return nil, persistence.NewStoreError("get workflow", id, err)
	}

	return workflow, nil
}

// SaveWorkflow upserts the workflow document.
func (p *Persistence) SaveWorkflow(ctx context.Context, workflow *models.Workflow) error {
	now := time.Now().UTC()
	if workflow.CreatedAt.IsZero() {
		workflow.CreatedAt = now
	}

	workflow.UpdatedAt = now

	nodes, err := json.Marshal(workflow.Nodes)
	if err != nil {
		return persistence.NewStoreError("save workflow", workflow.ID, err)
	}

	connections, err := json.Marshal(workflow.Connections)
	if err != nil {
		return persistence.NewStoreError("save workflow", workflow.ID, err)
	}

	triggers, err := json.Marshal(workflow.Triggers)
	if err != nil {
		return persistence.NewStoreError("save workflow", workflow.ID, err)
	}

	staticData, err := json.Marshal(workflow.StaticData)
	if err != nil {
		return persistence.NewStoreError("save workflow", workflow.ID, err)
	}

	settings, err := json.Marshal(workflow.Settings)
	if err != nil {
		return persistence.NewStoreError("save workflow", workflow.ID, err)
	}

	query := `
		INSERT INTO workflows (
			id, name, description, nodes, connections, triggers,
			static_data, settings, owner, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			nodes = EXCLUDED.nodes,
			connections = EXCLUDED.connections,
			triggers = EXCLUDED.triggers,
			static_data = EXCLUDED.static_data,
			settings = EXCLUDED.settings,
			owner = EXCLUDED.owner,
			updated_at = EXCLUDED.updated_at,
			deleted_at = NULL
	`

	_, err = p.db.ExecContext(ctx, query,
		workflow.ID, workflow.Name, workflow.Description, nodes, connections,
		triggers, staticData, settings, workflow.Owner,
		workflow.CreatedAt, workflow.UpdatedAt)
	if err != nil {
		return persistence.NewStoreError("save workflow", workflow.ID, err)
	}

	return nil
}

// DeleteWorkflow soft deletes a workflow.
func (p *Persistence) DeleteWorkflow(ctx context.Context, id string) error {
	result, err := p.db.ExecContext(ctx,
		"UPDATE workflows SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL", id)
	if err != nil {
		return persistence.NewStoreError("delete workflow", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewStoreError("delete workflow", id, err)
	}

	if affected == 0 {
		return persistence.ErrWorkflowNotFound
	}

	return nil
}

const executionColumns = `
	id
  , workflow_id
  , user_id
  , status
  , started_at
  , completed_at
  , current_node_id
  , total_nodes
  , completed_nodes
  , node_executions
  , error_message
  , error_node_id
`

// SaveExecution upserts the full execution record snapshot.
func (p *Persistence) SaveExecution(ctx context.Context, record *models.ExecutionRecord) error {
	nodeExecutions, err := json.Marshal(record.NodeExecutions)
	if err != nil {
		return persistence.NewStoreError("save execution", record.ID, err)
	}

	query := `
		INSERT INTO executions (
			id, workflow_id, user_id, status, started_at, completed_at,
			current_node_id, total_nodes, completed_nodes, node_executions,
			error_message, error_node_id, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW())
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			started_at = EXCLUDED.started_at,
			completed_at = EXCLUDED.completed_at,
			current_node_id = EXCLUDED.current_node_id,
			completed_nodes = EXCLUDED.completed_nodes,
			node_executions = EXCLUDED.node_executions,
			error_message = EXCLUDED.error_message,
			error_node_id = EXCLUDED.error_node_id,
			updated_at = NOW()
	`

	_, err = p.db.ExecContext(ctx, query,
		record.ID, record.WorkflowID, nullableString(record.UserID),
		string(record.Status), nullableTime(record.StartedAt), record.CompletedAt,
		nullableString(record.CurrentNodeID), record.TotalNodes, record.CompletedNodes,
		nodeExecutions, nullableString(record.ErrorMessage), nullableString(record.ErrorNodeID))
	if err != nil {
		return persistence.NewStoreError("save execution", record.ID, err)
	}

	return nil
}

// ExecutionByID returns an execution record by its ID.
func (p *Persistence) ExecutionByID(ctx context.Context, id string) (*models.ExecutionRecord, error) {
	query := `SELECT ` + executionColumns + ` FROM executions WHERE id = $1`

	record, err := scanExecution(p.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.ErrExecutionNotFound
	}

	if err != nil {
		return nil, persistence.NewStoreError("get execution", id, err)
	}

	return record, nil
}

// ExecutionsByWorkflow lists the records belonging to one workflow, newest
// first.
func (p *Persistence) ExecutionsByWorkflow(ctx context.Context, workflowID string) ([]*models.ExecutionRecord, error) {
	query := `SELECT ` + executionColumns + `
		FROM executions
		WHERE workflow_id = $1
		ORDER BY started_at DESC NULLS LAST
	`

	return p.queryExecutions(ctx, query, workflowID)
}

// ExecutionsByStatus lists records currently in the given status.
func (p *Persistence) ExecutionsByStatus(ctx context.Context, status models.ExecutionStatus) ([]*models.ExecutionRecord, error) {
	query := `SELECT ` + executionColumns + `
		FROM executions
		WHERE status = $1
		ORDER BY started_at DESC NULLS LAST
	`

	return p.queryExecutions(ctx, query, string(status))
}

func (p *Persistence) queryExecutions(ctx context.Context, query string, args ...any) ([]*models.ExecutionRecord, error) {
	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query executions: %w", err)
	}
	defer p.closeRows(ctx, rows)

	records := make([]*models.ExecutionRecord, 0)

	for rows.Next() {
		record, err := scanExecution(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan execution: %w", err)
		}

		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating executions: %w", err)
	}

	return records, nil
}

func (p *Persistence) closeRows(ctx context.Context, rows *sql.Rows) {
	if err := rows.Close(); err != nil {
		p.logger.ErrorContext(ctx, "failed to close rows", "error", err)
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWorkflow(row rowScanner) (*models.Workflow, error) {
	var (
		workflow    models.Workflow
		nodes       []byte
		connections []byte
		triggers    []byte
		staticData  []byte
		settings    []byte
		owner       sql.NullString
	)

	err := row.Scan(&workflow.ID, &workflow.Name, &workflow.Description,
		&nodes, &connections, &triggers, &staticData, &settings, &owner,
		&workflow.CreatedAt, &workflow.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(nodes, &workflow.Nodes); err != nil {
		return nil, fmt.Errorf("failed to unmarshal nodes: %w", err)
	}

	if err := json.Unmarshal(connections, &workflow.Connections); err != nil {
		return nil, fmt.Errorf("failed to unmarshal connections: %w", err)
	}

	if err := json.Unmarshal(triggers, &workflow.Triggers); err != nil {
		return nil, fmt.Errorf("failed to unmarshal triggers: %w", err)
	}

	if len(staticData) > 0 {
		if err := json.Unmarshal(staticData, &workflow.StaticData); err != nil {
			return nil, fmt.Errorf("failed to unmarshal static data: %w", err)
		}
	}

	if err := json.Unmarshal(settings, &workflow.Settings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal settings: %w", err)
	}

	workflow.Owner = owner.String

	return &workflow, nil
}

func scanExecution(row rowScanner) (*models.ExecutionRecord, error) {
	var (
		record         models.ExecutionRecord
		status         string
		userID         sql.NullString
		startedAt      sql.NullTime
		currentNodeID  sql.NullString
		nodeExecutions []byte
		errorMessage   sql.NullString
		errorNodeID    sql.NullString
	)

	err := row.Scan(&record.ID, &record.WorkflowID, &userID, &status,
		&startedAt, &record.CompletedAt, &currentNodeID,
		&record.TotalNodes, &record.CompletedNodes, &nodeExecutions,
		&errorMessage, &errorNodeID)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(nodeExecutions, &record.NodeExecutions); err != nil {
		return nil, fmt.Errorf("failed to unmarshal node executions: %w", err)
	}

	record.Status = models.ExecutionStatus(status)
	record.UserID = userID.String
	record.StartedAt = startedAt.Time
	record.CurrentNodeID = currentNodeID.String
	record.ErrorMessage = errorMessage.String
	record.ErrorNodeID = errorNodeID.String

	return &record, nil
}

func nullableString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullableTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
