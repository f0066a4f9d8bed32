package persistence

import (
	"errors"
	"fmt"
)

// Sentinel errors shared by all implementations.
var (
	ErrWorkflowNotFound  = errors.New("workflow not found")
	ErrExecutionNotFound = errors.New("execution not found")
	ErrAlreadyExists     = errors.New("record already exists")
)

// StoreError wraps a storage failure with the operation and record it hit.
type StoreError struct {
	Op       string
	RecordID string
	Err      error
}

func (e *StoreError) Error() string {
	if e.RecordID != "" {
		return fmt.Sprintf("persistence: %s %s: %v", e.Op, e.RecordID, e.Err)
	}

	return fmt.Sprintf("persistence: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError builds a StoreError.
func NewStoreError(op, recordID string, err error) *StoreError {
	return &StoreError{Op: op, RecordID: recordID, Err: err}
}
