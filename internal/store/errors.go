package store

import (
	"errors"
	"fmt"
)

// Error kinds shared by every store implementation. Entity-specific errors
// wrap one of these so callers can match either level with errors.Is.
var (
	ErrNotFound          = errors.New("entity not found")
	ErrDuplicate         = errors.New("entity already exists")
	ErrInvalidEntity     = errors.New("invalid entity") // constraint violation
	ErrTransactionFailed = errors.New("transaction failed")
)

var (
	ErrUserNotFound   = fmt.Errorf("%w: user", ErrNotFound)
	ErrTaskNotFound   = fmt.Errorf("%w: task", ErrNotFound)
	ErrEmailExists    = fmt.Errorf("%w: email", ErrDuplicate)
	ErrUsernameExists = fmt.Errorf("%w: username", ErrDuplicate)
)

// IsNotFoundError reports whether err is, or wraps, ErrNotFound.
func IsNotFoundError(err error) bool { return errors.Is(err, ErrNotFound) }

// IsDuplicateError reports whether err is, or wraps, ErrDuplicate.
func IsDuplicateError(err error) bool { return errors.Is(err, ErrDuplicate) }

// StoreError records which persistence step failed on which table-level
// entity ("task", "task_role", "shared_task", "task_tag").
type StoreError struct {
	Entity    string
	Operation string
	Message   string
	Err       error
}

func (e *StoreError) Error() string {
	msg := fmt.Sprintf("%s operation on %s failed: %s", e.Operation, e.Entity, e.Message)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *StoreError) Unwrap() error { return e.Err }

// NewStoreError wraps err with the entity and operation it came from.
func NewStoreError(entity, operation, message string, err error) *StoreError {
	return &StoreError{Entity: entity, Operation: operation, Message: message, Err: err}
}
