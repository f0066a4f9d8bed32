package engine

import (
	"fmt"
	"strings"

	"github.com/weftworks/weft/pkg/models"
	"github.com/weftworks/weft/pkg/validation"
)

// StateError reports an illegal state transition request: resuming a
// non-paused execution, cancelling a terminal one, and so on.
type StateError struct {
	ExecutionID string
	Status      models.ExecutionStatus
	Action      string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("cannot %s execution %s in status %s", e.Action, e.ExecutionID, e.Status)
}

// ValidationFailedError is returned by SubmitExecution when the workflow
// does not pass static validation. No side effect has occurred.
type ValidationFailedError struct {
	Result *validation.Result
}

func (e *ValidationFailedError) Error() string {
	messages := make([]string, 0, len(e.Result.Errors))
	for _, issue := range e.Result.Errors {
		messages = append(messages, issue.Message)
	}

	return fmt.Sprintf("workflow validation failed: %s", strings.Join(messages, "; "))
}
