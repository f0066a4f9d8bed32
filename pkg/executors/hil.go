package executors

import (
	"context"
	"strings"

	"github.com/weftworks/weft/pkg/models"
)

// Human response classifications. Timeout is synthesized by the engine's
// sweep, never by a classifier.
const (
	ClassificationConfirmed = "confirmed"
	ClassificationRejected  = "rejected"
	ClassificationUnrelated = "unrelated"
	ClassificationTimeout   = "timeout"
)

// InteractionChannel delivers an interaction request to a human over an
// external channel (Slack, email, app push).
type InteractionChannel interface {
	SendInteractionRequest(ctx context.Context, channel string, payload map[string]any) (string, error)
}

// ResponseClassifier maps a raw human response onto confirmed, rejected or
// unrelated.
type ResponseClassifier interface {
	Classify(ctx context.Context, response string) (string, error)
}

// KeywordClassifier is the fallback classifier: positive and negative
// keyword lists, everything else unrelated.
type KeywordClassifier struct{}

func (KeywordClassifier) Classify(_ context.Context, response string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(response))

	for _, keyword := range []string{"yes", "approve", "approved", "confirm", "confirmed", "ok", "lgtm"} {
		if strings.Contains(normalized, keyword) {
			return ClassificationConfirmed, nil
		}
	}

	for _, keyword := range []string{"no", "reject", "rejected", "deny", "denied", "decline"} {
		if strings.Contains(normalized, keyword) {
			return ClassificationRejected, nil
		}
	}

	return ClassificationUnrelated, nil
}

// HumanInTheLoopExecutor pauses an execution until a human responds. The
// first invocation sends the interaction request and reports PAUSED; the
// resumed invocation classifies the response and routes to the matching
// output port.
type HumanInTheLoopExecutor struct {
	channel    InteractionChannel
	classifier ResponseClassifier
}

// NewHumanInTheLoopExecutor builds the executor. A nil classifier falls
// back to keyword matching.
func NewHumanInTheLoopExecutor(channel InteractionChannel, classifier ResponseClassifier) *HumanInTheLoopExecutor {
	if classifier == nil {
		classifier = KeywordClassifier{}
	}

	return &HumanInTheLoopExecutor{channel: channel, classifier: classifier}
}

func (e *HumanInTheLoopExecutor) Execute(ctx context.Context, req Request) (*Outcome, error) {
	if req.ResumePayload == nil {
		return e.pause(ctx, req)
	}

	return e.complete(ctx, req)
}

func (e *HumanInTheLoopExecutor) pause(ctx context.Context, req Request) (*Outcome, error) {
	channel, _ := req.Node.Parameters["channel"].(string)
	message, _ := req.Node.Parameters["message"].(string)

	if channel == "" || message == "" {
		return nil, permanentError("human_in_the_loop node %q missing channel or message parameter", req.Node.ID)
	}

	payload := map[string]any{
		"workflow_id":  req.Execution.WorkflowID,
		"execution_id": req.Execution.ExecutionID,
		"node_id":      req.Node.ID,
		"message":      message,
		"input":        req.Input,
	}

	interactionID, err := e.channel.SendInteractionRequest(ctx, channel, payload)
	if err != nil {
		return nil, temporaryError("human_in_the_loop node %q: send interaction request: %v", req.Node.ID, err)
	}

	return &Outcome{Status: models.NodeStatusPaused, InteractionID: interactionID}, nil
}

func (e *HumanInTheLoopExecutor) complete(ctx context.Context, req Request) (*Outcome, error) {
	response, _ := req.ResumePayload["response"].(string)

	// The engine's timeout sweep supplies the classification itself; a
	// human response goes through the classifier.
	classification, _ := req.ResumePayload["ai_classification"].(string)
	if classification == "" {
		classified, err := e.classifier.Classify(ctx, response)
		if err != nil {
			return nil, temporaryError("human_in_the_loop node %q: classify response: %v", req.Node.ID, err)
		}

		classification = classified
	}

	port := classification
	if port == ClassificationTimeout {
		port = models.PortTimeout
	}

	return &Outcome{
		Status: models.NodeStatusSuccess,
		OutputData: map[string]any{
			"ai_classification": classification,
			"user_response":     response,
		},
		OutputPort: port,
	}, nil
}
