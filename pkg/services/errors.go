// Package services provides the definition management business layer and its
// standardized error types.
package services

import (
	"errors"
	"fmt"
)

// Business Logic Errors - These indicate client errors (4xx responses).
var (
	// Validation Errors (400 Bad Request).
	ErrInvalidRequest         = errors.New("invalid request")
	ErrDefinitionNameRequired = errors.New("definition name is required")
	ErrEntityTypeRequired     = errors.New("entity type is required")
	ErrEmptyOrganizationID    = errors.New("organization ID cannot be empty")
	ErrInvalidDefinition      = errors.New("invalid workflow definition")

	// Business Logic Conflicts (409 Conflict).
	ErrCannotModifyActive        = errors.New("cannot modify active workflow definition")
	ErrCannotRemoveInUse         = errors.New("cannot remove states or transitions while instances exist")
	ErrAlreadyActive             = errors.New("workflow definition is already active")
	ErrCannotDeleteWithInstances = errors.New("cannot delete definition with existing instances")
)

// ServiceError wraps service-level errors with additional context.
type ServiceError struct {
	Op      string // Operation name
	Code    string // Error code for API responses
	Message string // Human-readable message
	Err     error  // Underlying error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsValidationError checks if an error is a validation error that should return HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrDefinitionNameRequired) ||
		errors.Is(err, ErrEntityTypeRequired) ||
		errors.Is(err, ErrEmptyOrganizationID) ||
		errors.Is(err, ErrInvalidDefinition)
}

// IsConflictError checks if an error is a business logic conflict that should return HTTP 409.
func IsConflictError(err error) bool {
	return errors.Is(err, ErrCannotModifyActive) ||
		errors.Is(err, ErrCannotRemoveInUse) ||
		errors.Is(err, ErrAlreadyActive) ||
		errors.Is(err, ErrCannotDeleteWithInstances)
}

// NewValidationError creates a new validation error with context.
func NewValidationError(op, code, message string, err error) *ServiceError {
	return &ServiceError{
		Op:      op,
		Code:    code,
		Message: message,
		Err:     err,
	}
}
