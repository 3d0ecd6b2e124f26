package budget

import (
	"errors"
	"fmt"
)

var (
	ErrOutOfRange = errors.New("margin out of range")
	ErrNotFound   = errors.New("analysis not found")
)

// OutOfRangeError reports a margin outside the accepted offer window.
type OutOfRangeError struct {
	Value float64
	Min   float64
	Max   float64
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("margin %g%% outside [%g, %g]", e.Value, e.Min, e.Max)
}

// Is lets callers match with errors.Is(err, ErrOutOfRange).
func (e *OutOfRangeError) Is(target error) bool {
	return target == ErrOutOfRange
}

// NotFoundError reports that no history record matched the requested id.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("analysis %q not found", e.ID)
}

// Is lets callers match with errors.Is(err, ErrNotFound).
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}
