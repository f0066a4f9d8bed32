package executors

import (
	"net/http"

	"github.com/weftworks/weft/pkg/adapters"
	"github.com/weftworks/weft/pkg/mapping"
	"github.com/weftworks/weft/pkg/models"
)

// Dependencies carries the collaborators the built-in executors need.
type Dependencies struct {
	HTTPClient    *http.Client
	Mapping       *mapping.Processor
	LLM           LLMClient
	Adapters      *adapters.Registry
	Credentials   adapters.CredentialResolver
	KeyValue      KeyValueStore
	Conversations ConversationStore
	Interactions  InteractionChannel
	Classifier    ResponseClassifier
}

// NewDefaultRegistry wires the built-in executor set. Missing optional
// stores fall back to in-process implementations.
func NewDefaultRegistry(deps Dependencies) *Registry {
	if deps.Mapping == nil {
		deps.Mapping = mapping.NewProcessor(mapping.NewFunctionRegistry())
	}

	if deps.KeyValue == nil {
		deps.KeyValue = NewInMemoryKeyValueStore()
	}

	if deps.Conversations == nil {
		deps.Conversations = NewInMemoryConversationStore()
	}

	registry := NewRegistry()

	registry.Register(models.NodeTypeTrigger, SubtypeAny, NewTriggerExecutor())
	registry.Register(models.NodeTypeAction, models.SubtypeHTTP, NewHTTPRequestExecutor(deps.HTTPClient))
	registry.Register(models.NodeTypeAction, models.SubtypeTransform, NewTransformExecutor(deps.Mapping))
	registry.Register(models.NodeTypeFlow, models.SubtypeIf, NewIfExecutor())
	registry.Register(models.NodeTypeFlow, models.SubtypeFilter, NewFilterExecutor())
	registry.Register(models.NodeTypeFlow, models.SubtypeForEach, NewForEachExecutor())
	registry.Register(models.NodeTypeTool, models.SubtypeUtility, NewUtilityExecutor())
	registry.Register(models.NodeTypeMemory, SubtypeAny, NewMemoryExecutor(deps.KeyValue, deps.Conversations))

	if deps.LLM != nil {
		registry.Register(models.NodeTypeAIAgent, SubtypeAny, NewAIAgentExecutor(deps.LLM))
	}

	if deps.Adapters != nil && deps.Credentials != nil {
		registry.Register(models.NodeTypeExternalAction, SubtypeAny, NewExternalActionExecutor(deps.Adapters, deps.Credentials))
	}

	if deps.Interactions != nil {
		registry.Register(models.NodeTypeHumanInTheLoop, SubtypeAny, NewHumanInTheLoopExecutor(deps.Interactions, deps.Classifier))
	}

	return registry
}
