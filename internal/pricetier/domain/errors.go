package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidUpperBound  = errors.New("invalid_upper_bound")
	ErrInvalidFlatAmount  = errors.New("invalid_flat_amount")
	ErrInvalidUnitAmount  = errors.New("invalid_unit_amount")
	ErrUnboundedNotLast   = errors.New("unbounded_tier_not_last")
	ErrBoundsNotAscending = errors.New("bounds_not_ascending")
)

// ValidationError reports the tier that failed to parse.
type ValidationError struct {
	Index int
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("tier %d: %v", e.Index, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// NewValidationError wraps err for the tier at index.
func NewValidationError(index int, err error) error {
	return &ValidationError{Index: index, Err: err}
}
