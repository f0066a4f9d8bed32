package executors

import (
	"context"
	"errors"
	"strings"

	"github.com/weftworks/weft/pkg/adapters"
	"github.com/weftworks/weft/pkg/models"
)

// ExternalActionExecutor dispatches EXTERNAL_ACTION nodes to the adapter
// registry. Adapter errors pass through with their taxonomy intact; the
// executor never special-cases a provider.
type ExternalActionExecutor struct {
	registry    *adapters.Registry
	credentials adapters.CredentialResolver
}

// NewExternalActionExecutor builds the executor on an adapter registry and
// credential resolver.
func NewExternalActionExecutor(registry *adapters.Registry, credentials adapters.CredentialResolver) *ExternalActionExecutor {
	return &ExternalActionExecutor{registry: registry, credentials: credentials}
}

func (e *ExternalActionExecutor) Execute(ctx context.Context, req Request) (*Outcome, error) {
	provider := providerFor(req.Node)

	operation, _ := req.Node.Parameters["operation"].(string)
	if operation == "" {
		return nil, permanentError("external_action node %q missing operation parameter", req.Node.ID)
	}

	adapter, err := e.registry.Get(provider)
	if err != nil {
		return nil, permanentError("external_action node %q: %v", req.Node.ID, err)
	}

	userID, _ := req.Execution.Metadata["user_id"].(string)

	creds, credErr := e.credentials.Resolve(ctx, userID, provider)
	if credErr != nil {
		if errors.Is(credErr, adapters.ErrNoCredential) {
			return nil, &models.NodeError{
				Message: credErr.Error(),
				Kind:    models.ErrorKindAuthentication,
			}
		}

		return nil, internalError("external_action node %q: resolve credentials: %v", req.Node.ID, credErr)
	}

	parameters := mergeParameters(req.Node.Parameters, req.Input)

	result, callErr := adapter.Call(ctx, operation, parameters, creds)
	if callErr != nil {
		return nil, &models.NodeError{
			Message: callErr.Error(),
			Kind:    adapters.KindOf(callErr),
		}
	}

	return &Outcome{Status: models.NodeStatusSuccess, OutputData: result}, nil
}

// providerFor derives the registry key from the node subtype, e.g.
// GOOGLE_CALENDAR -> google_calendar.
func providerFor(node *models.Node) string {
	return strings.ToLower(node.Subtype)
}

// mergeParameters overlays resolved input onto the node's static
// parameters; input wins on key collision.
func mergeParameters(params, input map[string]any) map[string]any {
	merged := make(map[string]any, len(params)+len(input))

	for key, value := range params {
		if key == "operation" {
			continue
		}

		merged[key] = value
	}

	for key, value := range input {
		merged[key] = value
	}

	return merged
}
