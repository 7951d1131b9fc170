package docop

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedOperation is matched by every structural error found while constructing an operation.
	ErrMalformedOperation = errors.New("malformed operation")

	// ErrInapplicableOperation is matched when a well-formed operation does not fit the document (or operation) it is applied to.
	ErrInapplicableOperation = errors.New("inapplicable operation")

	// ErrTransformConflict is matched when two operations cannot be transformed against each other.
	ErrTransformConflict = errors.New("transform conflict")
)

// MalformedOperationError reports a structural problem at a component index.
// Index is -1 when the problem is not tied to a single component.
type MalformedOperationError struct {
	Index  int
	Reason string
}

func (e *MalformedOperationError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("malformed operation: %s", e.Reason)
	}
	return fmt.Sprintf("malformed operation: component %d: %s", e.Index, e.Reason)
}

func (e *MalformedOperationError) Is(target error) bool {
	return target == ErrMalformedOperation
}

// InapplicableOperationError reports a mismatch between an operation and its target at a document position.
// Pos is -1 when no position applies.
type InapplicableOperationError struct {
	Pos    int
	Reason string
}

func (e *InapplicableOperationError) Error() string {
	if e.Pos < 0 {
		return fmt.Sprintf("inapplicable operation: %s", e.Reason)
	}
	return fmt.Sprintf("inapplicable operation at %d: %s", e.Pos, e.Reason)
}

func (e *InapplicableOperationError) Is(target error) bool {
	return target == ErrInapplicableOperation
}

// TransformConflictError reports a component pairing the transformer cannot resolve.
type TransformConflictError struct {
	Reason string
}

func (e *TransformConflictError) Error() string {
	return fmt.Sprintf("transform conflict: %s", e.Reason)
}

func (e *TransformConflictError) Is(target error) bool {
	return target == ErrTransformConflict
}

func malformed(index int, format string, args ...interface{}) error {
	return &MalformedOperationError{Index: index, Reason: fmt.Sprintf(format, args...)}
}

func inapplicable(pos int, format string, args ...interface{}) error {
	return &InapplicableOperationError{Pos: pos, Reason: fmt.Sprintf(format, args...)}
}

func conflict(format string, args ...interface{}) error {
	return &TransformConflictError{Reason: fmt.Sprintf(format, args...)}
}

// assert panics when an internal invariant is broken.
func assert(cond bool, msg string) {
	if !cond {
		panic("docop: " + msg)
	}
}
