package usage

import (
	"errors"
	"fmt"
)

// ErrLimitReached indicates the user exceeded their usage limit.
var ErrLimitReached = errors.New("limit reached")

// LimitError names the exhausted counter.
type LimitError struct {
	Metric Metric
	Used   int
	Limit  int
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("monthly %s limit reached (%d/%d)", e.Metric, e.Used, e.Limit)
}

func (e *LimitError) Is(target error) bool { return target == ErrLimitReached }
