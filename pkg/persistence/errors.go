// Package persistence provides standardized error types for persistence
// operations.
package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrDefinitionNotFound indicates a workflow definition was not found by
	// the given (organization, id) pair.
	ErrDefinitionNotFound = errors.New("workflow definition not found")

	// ErrInstanceNotFound indicates a workflow instance was not found by the
	// given (organization, id) pair.
	ErrInstanceNotFound = errors.New("workflow instance not found")

	// ErrDefinitionAlreadyExists indicates a definition with the same
	// identifier already exists.
	ErrDefinitionAlreadyExists = errors.New("workflow definition already exists")
)

// DefinitionError wraps definition persistence errors with operation context.
type DefinitionError struct {
	Op             string // Operation being performed (e.g., "GetByID", "Save")
	OrganizationID string
	DefinitionID   string
	Err            error
}

func (e *DefinitionError) Error() string {
	return fmt.Sprintf("%s failed for definition %s/%s: %v", e.Op, e.OrganizationID, e.DefinitionID, e.Err)
}

func (e *DefinitionError) Unwrap() error {
	return e.Err
}

func (e *DefinitionError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// InstanceError wraps instance persistence errors with operation context.
type InstanceError struct {
	Op             string
	OrganizationID string
	InstanceID     string
	Err            error
}

func (e *InstanceError) Error() string {
	return fmt.Sprintf("%s failed for instance %s/%s: %v", e.Op, e.OrganizationID, e.InstanceID, e.Err)
}

func (e *InstanceError) Unwrap() error {
	return e.Err
}

func (e *InstanceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsDefinitionNotFound checks if an error indicates a missing definition.
func IsDefinitionNotFound(err error) bool {
	return errors.Is(err, ErrDefinitionNotFound)
}

// IsInstanceNotFound checks if an error indicates a missing instance.
func IsInstanceNotFound(err error) bool {
	return errors.Is(err, ErrInstanceNotFound)
}
