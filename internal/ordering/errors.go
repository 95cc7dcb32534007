package ordering

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownItem means an ordered item name is not in the catalog.
	ErrUnknownItem = errors.New("item not found in menu")
	// ErrOrderNotFound means no order exists with the given id.
	ErrOrderNotFound = errors.New("order not found")
	// ErrInvalidStatusTransition means the lifecycle does not allow the requested move.
	ErrInvalidStatusTransition = errors.New("invalid order status transition")
)

// validationError communicates rule violations back to transport handlers.
type validationError struct {
	message string
}

func (e validationError) Error() string { return e.message }

func (e validationError) IsValidation() bool { return true }

func newValidationError(format string, args ...interface{}) error {
	return validationError{message: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err (or anything it wraps) is a caller mistake
// rather than an infrastructure failure.
func IsValidation(err error) bool {
	var v interface{ IsValidation() bool }
	return errors.As(err, &v) && v.IsValidation()
}
