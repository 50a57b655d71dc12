package booking

import (
	"errors"
	"fmt"
)

// The error taxonomy separates the caller's mistakes from honest contention
// and from infrastructure trouble. Handlers map ValidationError to 422,
// ErrSlotTaken and ErrSwapBlocked to 409, ErrNotFound to 404, and everything
// else to 500.
var (
	// ErrSlotTaken means the requested interval overlaps an existing
	// appointment or block. Both the advisory pre-check and the storage
	// exclusion constraint surface as this error; the caller cannot tell
	// which layer caught it, and does not need to.
	ErrSlotTaken = errors.New("time slot already taken")

	// ErrSwapBlocked means a shift swap was refused because at least one of
	// the workers has appointments on that day.
	ErrSwapBlocked = errors.New("shift swap blocked by existing appointments")

	ErrNotFound = errors.New("not found")
)

// ValidationError is a request the caller could have known was wrong:
// malformed times, an off-shift booking, an inactive service.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func invalidField(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

func IsValidation(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}
