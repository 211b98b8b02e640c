// Package persistence provides the data storage abstraction for workflow
// definitions and instances. All operations are tenant-scoped: records are
// keyed by (organization, id).
package persistence

import (
	"context"

	"github.com/calyptra/stateflow/pkg/models"
)

// DefinitionRepository stores workflow definitions.
type DefinitionRepository interface {
	Save(ctx context.Context, definition *models.WorkflowDefinition) error
	GetByID(ctx context.Context, organizationID, id string) (*models.WorkflowDefinition, error)
	ListByOrganization(ctx context.Context, organizationID string) ([]*models.WorkflowDefinition, error)
	Delete(ctx context.Context, organizationID, id string) error
}

// InstanceRepository stores workflow instances together with their history.
type InstanceRepository interface {
	Save(ctx context.Context, instance *models.WorkflowInstance) error
	GetByID(ctx context.Context, organizationID, id string) (*models.WorkflowInstance, error)
	ListByDefinition(ctx context.Context, organizationID, definitionID string) ([]*models.WorkflowInstance, error)
	CountByDefinition(ctx context.Context, organizationID, definitionID string) (int64, error)
}

// Persistence aggregates the repositories of one storage backend.
type Persistence interface {
	DefinitionRepository() DefinitionRepository
	InstanceRepository() InstanceRepository
	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}
