package executors

import (
	"context"
	"errors"

	"github.com/weftworks/weft/pkg/models"
)

// LLMRequest is one completion call to the model backend.
type LLMRequest struct {
	Model   string
	Prompt  string
	Input   map[string]any
	Options map[string]any
}

// LLMResponse carries the generated content plus usage metadata.
type LLMResponse struct {
	Content          string
	Model            string
	PromptTokens     int
	CompletionTokens int
}

// LLMClient is the backend an AI agent node talks to.
type LLMClient interface {
	Complete(ctx context.Context, req LLMRequest) (*LLMResponse, error)
}

// AIAgentExecutor invokes an LLM backend with the node's prompt and model
// parameters plus the resolved input. Backend failures default to temporary
// unless the client classified them itself.
type AIAgentExecutor struct {
	client LLMClient
}

// NewAIAgentExecutor builds the executor on the given model client.
func NewAIAgentExecutor(client LLMClient) *AIAgentExecutor {
	return &AIAgentExecutor{client: client}
}

func (e *AIAgentExecutor) Execute(ctx context.Context, req Request) (*Outcome, error) {
	params := req.Node.Parameters

	model, _ := params["model"].(string)
	prompt, _ := params["prompt"].(string)

	if model == "" || prompt == "" {
		return nil, permanentError("ai_agent node %q missing model or prompt parameter", req.Node.ID)
	}

	options, _ := params["options"].(map[string]any)

	resp, err := e.client.Complete(ctx, LLMRequest{
		Model:   model,
		Prompt:  prompt,
		Input:   req.Input,
		Options: options,
	})
	if err != nil {
		var nodeErr *models.NodeError
		if errors.As(err, &nodeErr) {
			return nil, nodeErr
		}

		return nil, temporaryError("ai_agent node %q: %v", req.Node.ID, err)
	}

	return &Outcome{
		Status: models.NodeStatusSuccess,
		OutputData: map[string]any{
			"content": resp.Content,
			"model":   resp.Model,
			"usage": map[string]any{
				"prompt_tokens":     resp.PromptTokens,
				"completion_tokens": resp.CompletionTokens,
				"total_tokens":      resp.PromptTokens + resp.CompletionTokens,
			},
		},
	}, nil
}
