package editor

import (
	"fmt"

	"github.com/rotisserie/eris"
)

// ErrNotFound is returned when an action names a record that is not in the
// live set.
var ErrNotFound = eris.New("editor: record not found")

// ValidationError rejects an action before anything is written.
type ValidationError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// StoreError wraps a failure of the backing store. The interaction is over;
// nothing is retried.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return "editor: " + e.Op + ": " + e.Err.Error()
}

func (e *StoreError) Unwrap() error {
	return e.Err
}
