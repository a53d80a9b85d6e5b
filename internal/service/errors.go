package service

import (
	"errors"
	"fmt"

	"github.com/phrazzld/taskflow-api/internal/domain"
)

// Error kinds returned by the services. Callers match them with errors.Is;
// the API layer maps each kind to a status code.
var (
	// ErrUnauthenticated indicates no caller was supplied.
	ErrUnauthenticated = errors.New("user not authenticated")

	// ErrForbidden indicates the caller is known but not permitted.
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound indicates a referenced task or user does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates a uniqueness rule would be violated.
	ErrConflict = errors.New("conflict")

	// ErrInvalidCredentials indicates a failed login.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// ServiceError pairs an error kind with a message that is safe to show to
// the caller. Err carries the underlying cause, if any, for logging.
type ServiceError struct {
	Kind    error
	Message string
	Err     error
}

// Error implements the error interface for ServiceError.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap exposes both the kind and the cause to errors.Is/errors.As.
func (e *ServiceError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// NewServiceError creates a new ServiceError.
func NewServiceError(kind error, message string, err error) *ServiceError {
	return &ServiceError{Kind: kind, Message: message, Err: err}
}

func errUnauthenticated() error {
	return NewServiceError(ErrUnauthenticated, "user not authenticated", nil)
}

func errTaskNotFound(id fmt.Stringer, cause error) error {
	return NewServiceError(ErrNotFound, fmt.Sprintf("Task not found with id: %s", id), cause)
}

func errUserNotFound(email string, cause error) error {
	return NewServiceError(ErrNotFound, fmt.Sprintf("user not found with email: %s", email), cause)
}

func errNoAccess() error {
	return NewServiceError(ErrForbidden, "You are not authorized to access this resource", nil)
}

// AccessError reports a role that may not write a task field.
type AccessError struct {
	Role  domain.RoleType
	Field domain.TaskField
}

// Error implements the error interface for AccessError.
func (e *AccessError) Error() string {
	return fmt.Sprintf("Role %s is not authorized to perform %s operation.", e.Role, e.Field)
}

// Unwrap makes AccessError match ErrForbidden.
func (e *AccessError) Unwrap() error {
	return ErrForbidden
}
