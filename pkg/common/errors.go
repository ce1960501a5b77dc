package common

import "fmt"

// ValidationError marks a malformed input segment. The segment is skipped
// and the conversation continues.
type ValidationError struct {
	ConversationID string
	Index          int
	Reason         string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid segment %d in conversation %s: %s", e.Index, e.ConversationID, e.Reason)
}

// ExtractionError marks a failed model-based extraction call. It carries the
// batch number so the scheduler can retry or demote the category.
type ExtractionError struct {
	Category string
	Batch    int
	Err      error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction failed for %s batch %d: %v", e.Category, e.Batch, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// PersistenceError marks a failed graph store transaction. The transaction
// is retried whole; if it keeps failing the conversation fails.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("graph store %s failed: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// ConfigurationError marks invalid configuration. It is fatal at the start
// of a run; the conversation never begins processing.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration for %s: %s", e.Field, e.Reason)
}
