package engine

import (
	"context"
	"errors"
	"time"
)

// sweepLoop periodically resumes paused executions whose response deadline
// has passed, synthesizing a timeout classification so the paused node
// routes to its timeout branch.
func (e *Engine) sweepLoop() {
	ticker := time.NewTicker(e.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.done:
			return
		case <-ticker.C:
			e.sweepOnce(context.Background())
		}
	}
}

func (e *Engine) sweepOnce(ctx context.Context) {
	now := time.Now().UTC()

	e.mu.Lock()
	var expired []string
	for id, st := range e.active {
		st.mu.Lock()
		if !st.deadline.IsZero() && now.After(st.deadline) {
			expired = append(expired, id)
		}
		st.mu.Unlock()
	}
	e.mu.Unlock()

	for _, id := range expired {
		payload := map[string]any{"ai_classification": "timeout"}

		if _, err := e.resume(ctx, id, payload, true); err != nil {
			// A caller's resume can win the race; that is not a fault.
			var stateErr *StateError
			if errors.As(err, &stateErr) {
				continue
			}

			e.logger.Error("timeout sweep resume failed",
				"execution_id", id, "error", err)
		}
	}
}
