package grid

import (
	"fmt"

	"github.com/Stennix/tilemerge/internal/errors"
)

// ErrOutOfRange matches every *OutOfRangeError with errors.Is.
var ErrOutOfRange = errors.NewStd("out of range")

// OutOfRangeError reports a tile id or coordinate outside the grid.
type OutOfRangeError struct {
	What  string // "tile id", "row" or "column"
	Value int
	Min   int
	Max   int
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("%s %d out of range [%d, %d]", e.What, e.Value, e.Min, e.Max)
}

// ErrorCategory lets the errors package classify the failure.
func (e *OutOfRangeError) ErrorCategory() errors.ErrorCategory {
	return errors.CategoryOutOfRange
}

func (e *OutOfRangeError) Is(target error) bool {
	return target == ErrOutOfRange
}
