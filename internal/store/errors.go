package store

import (
	"errors"
	"fmt"

	"pmtrack-backend/internal/lifecycle"
)

var (
	// ErrNotFound is returned when no record carries the requested machine id.
	ErrNotFound = errors.New("machine not found")
	// ErrDuplicateMachineID is returned by Create when the machine id is taken.
	ErrDuplicateMachineID = errors.New("machine id already exists")
)

// Error wraps a persistence failure. The operation it belongs to has been
// rolled back when this is returned.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("store %s failed: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// classify leaves domain errors untouched and wraps everything else as *Error.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var storeErr *Error
	var validationErr *lifecycle.ValidationError
	if errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrDuplicateMachineID) ||
		errors.As(err, &storeErr) ||
		errors.As(err, &validationErr) {
		return err
	}
	return &Error{Op: op, Err: err}
}
