package executors

import (
	"context"
	"sync"

	"github.com/weftworks/weft/pkg/models"
)

// KeyValueStore backs MEMORY/KEY_VALUE nodes. Get and Delete are idempotent;
// Store overwrites.
type KeyValueStore interface {
	Get(ctx context.Context, key string) (any, bool, error)
	Store(ctx context.Context, key string, value any) error
	Delete(ctx context.Context, key string) error
}

// ConversationStore backs MEMORY/CONVERSATION_BUFFER nodes. Messages come
// back in append order.
type ConversationStore interface {
	Append(ctx context.Context, conversationID string, message map[string]any) error
	Messages(ctx context.Context, conversationID string, limit int) ([]map[string]any, error)
	Clear(ctx context.Context, conversationID string) error
}

// InMemoryKeyValueStore is the process-local key-value store.
type InMemoryKeyValueStore struct {
	mu   sync.RWMutex
	data map[string]any
}

// NewInMemoryKeyValueStore returns an empty in-process store.
func NewInMemoryKeyValueStore() *InMemoryKeyValueStore {
	return &InMemoryKeyValueStore{data: make(map[string]any)}
}

func (s *InMemoryKeyValueStore) Get(_ context.Context, key string) (any, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.data[key]

	return value, ok, nil
}

func (s *InMemoryKeyValueStore) Store(_ context.Context, key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value

	return nil
}

func (s *InMemoryKeyValueStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)

	return nil
}

// InMemoryConversationStore is the process-local conversation buffer.
type InMemoryConversationStore struct {
	mu       sync.RWMutex
	messages map[string][]map[string]any
}

// NewInMemoryConversationStore returns an empty in-process buffer.
func NewInMemoryConversationStore() *InMemoryConversationStore {
	return &InMemoryConversationStore{messages: make(map[string][]map[string]any)}
}

func (s *InMemoryConversationStore) Append(_ context.Context, conversationID string, message map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages[conversationID] = append(s.messages[conversationID], message)

	return nil
}

func (s *InMemoryConversationStore) Messages(_ context.Context, conversationID string, limit int) ([]map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.messages[conversationID]
	if limit > 0 && len(all) > limit {
		all = all[len(all)-limit:]
	}

	out := make([]map[string]any, len(all))
	copy(out, all)

	return out, nil
}

func (s *InMemoryConversationStore) Clear(_ context.Context, conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.messages, conversationID)

	return nil
}

// MemoryExecutor runs MEMORY nodes against the configured stores. Keys are
// scoped by workflow so concurrent executions of different workflows never
// collide.
type MemoryExecutor struct {
	kv            KeyValueStore
	conversations ConversationStore
}

// NewMemoryExecutor builds the executor on the given stores.
func NewMemoryExecutor(kv KeyValueStore, conversations ConversationStore) *MemoryExecutor {
	return &MemoryExecutor{kv: kv, conversations: conversations}
}

func (e *MemoryExecutor) Execute(ctx context.Context, req Request) (*Outcome, error) {
	operation, _ := req.Node.Parameters["operation"].(string)

	switch req.Node.Subtype {
	case models.SubtypeKeyValue:
		return e.executeKeyValue(ctx, req, operation)
	case models.SubtypeConversationBuffer:
		return e.executeConversation(ctx, req, operation)
	default:
		return nil, permanentError("memory node %q: unsupported subtype %q", req.Node.ID, req.Node.Subtype)
	}
}

func (e *MemoryExecutor) executeKeyValue(ctx context.Context, req Request, operation string) (*Outcome, error) {
	key, _ := req.Node.Parameters["key"].(string)
	if key == "" {
		return nil, permanentError("memory node %q missing key parameter", req.Node.ID)
	}

	scoped := req.Execution.WorkflowID + ":" + key

	switch operation {
	case "get":
		value, found, err := e.kv.Get(ctx, scoped)
		if err != nil {
			return nil, temporaryError("memory node %q: get: %v", req.Node.ID, err)
		}

		return &Outcome{
			Status:     models.NodeStatusSuccess,
			OutputData: map[string]any{"key": key, "value": value, "found": found},
		}, nil
	case "store":
		value, present := req.Node.Parameters["value"]
		if !present {
			value = any(req.Input)
		}

		if err := e.kv.Store(ctx, scoped, value); err != nil {
			return nil, temporaryError("memory node %q: store: %v", req.Node.ID, err)
		}

		return &Outcome{
			Status:     models.NodeStatusSuccess,
			OutputData: map[string]any{"key": key, "stored": true},
		}, nil
	case "delete":
		if err := e.kv.Delete(ctx, scoped); err != nil {
			return nil, temporaryError("memory node %q: delete: %v", req.Node.ID, err)
		}

		return &Outcome{
			Status:     models.NodeStatusSuccess,
			OutputData: map[string]any{"key": key, "deleted": true},
		}, nil
	default:
		return nil, permanentError("memory node %q: unsupported key_value operation %q", req.Node.ID, operation)
	}
}

func (e *MemoryExecutor) executeConversation(ctx context.Context, req Request, operation string) (*Outcome, error) {
	conversationID, _ := req.Node.Parameters["conversation_id"].(string)
	if conversationID == "" {
		conversationID = req.Execution.WorkflowID
	}

	scoped := req.Execution.WorkflowID + ":" + conversationID

	switch operation {
	case "append":
		if err := e.conversations.Append(ctx, scoped, req.Input); err != nil {
			return nil, temporaryError("memory node %q: append: %v", req.Node.ID, err)
		}

		return &Outcome{
			Status:     models.NodeStatusSuccess,
			OutputData: map[string]any{"appended": true},
		}, nil
	case "get":
		limit := 0
		if raw, ok := req.Node.Parameters["limit"].(float64); ok {
			limit = int(raw)
		}

		messages, err := e.conversations.Messages(ctx, scoped, limit)
		if err != nil {
			return nil, temporaryError("memory node %q: get: %v", req.Node.ID, err)
		}

		items := make([]any, len(messages))
		for i, m := range messages {
			items[i] = m
		}

		return &Outcome{
			Status:     models.NodeStatusSuccess,
			OutputData: map[string]any{"messages": items, "count": len(items)},
		}, nil
	case "clear":
		if err := e.conversations.Clear(ctx, scoped); err != nil {
			return nil, temporaryError("memory node %q: clear: %v", req.Node.ID, err)
		}

		return &Outcome{
			Status:     models.NodeStatusSuccess,
			OutputData: map[string]any{"cleared": true},
		}, nil
	default:
		return nil, permanentError("memory node %q: unsupported conversation_buffer operation %q", req.Node.ID, operation)
	}
}
