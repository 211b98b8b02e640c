package testutil

import (
	"context"
	"sort"
	"sync"

	"github.com/calyptra/stateflow/pkg/models"
	"github.com/calyptra/stateflow/pkg/persistence"
)

// MemoryPersistence is an in-memory persistence.Persistence used by tests.
type MemoryPersistence struct {
	mu          sync.RWMutex
	definitions map[string]map[string]*models.WorkflowDefinition
	instances   map[string]map[string]*models.WorkflowInstance
}

func NewMemoryPersistence() *MemoryPersistence {
	return &MemoryPersistence{
		definitions: make(map[string]map[string]*models.WorkflowDefinition),
		instances:   make(map[string]map[string]*models.WorkflowInstance),
	}
}

func (p *MemoryPersistence) DefinitionRepository() persistence.DefinitionRepository {
	return &memoryDefinitionRepository{p: p}
}

func (p *MemoryPersistence) InstanceRepository() persistence.InstanceRepository {
	return &memoryInstanceRepository{p: p}
}

func (p *MemoryPersistence) HealthCheck(_ context.Context) error { return nil }

func (p *MemoryPersistence) Close(_ context.Context) error { return nil }

type memoryDefinitionRepository struct {
	p *MemoryPersistence
}

func (r *memoryDefinitionRepository) Save(_ context.Context, definition *models.WorkflowDefinition) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	byOrg, ok := r.p.definitions[definition.OrganizationID]
	if !ok {
		byOrg = make(map[string]*models.WorkflowDefinition)
		r.p.definitions[definition.OrganizationID] = byOrg
	}

	byOrg[definition.ID] = definition

	return nil
}

func (r *memoryDefinitionRepository) GetByID(_ context.Context, organizationID, id string) (*models.WorkflowDefinition, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	definition, ok := r.p.definitions[organizationID][id]
	if !ok {
		return nil, &persistence.DefinitionError{
			Op:             "get",
			OrganizationID: organizationID,
			DefinitionID:   id,
			Err:            persistence.ErrDefinitionNotFound,
		}
	}

	return definition, nil
}

func (r *memoryDefinitionRepository) ListByOrganization(_ context.Context, organizationID string) ([]*models.WorkflowDefinition, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	definitions := make([]*models.WorkflowDefinition, 0, len(r.p.definitions[organizationID]))
	for _, definition := range r.p.definitions[organizationID] {
		definitions = append(definitions, definition)
	}

	sort.Slice(definitions, func(i, j int) bool {
		return definitions[i].CreatedAt.Before(definitions[j].CreatedAt)
	})

	return definitions, nil
}

func (r *memoryDefinitionRepository) Delete(_ context.Context, organizationID, id string) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	if _, ok := r.p.definitions[organizationID][id]; !ok {
		return &persistence.DefinitionError{
			Op:             "delete",
			OrganizationID: organizationID,
			DefinitionID:   id,
			Err:            persistence.ErrDefinitionNotFound,
		}
	}

	delete(r.p.definitions[organizationID], id)

	return nil
}

type memoryInstanceRepository struct {
	p *MemoryPersistence
}

func (r *memoryInstanceRepository) Save(_ context.Context, instance *models.WorkflowInstance) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	byOrg, ok := r.p.instances[instance.OrganizationID]
	if !ok {
		byOrg = make(map[string]*models.WorkflowInstance)
		r.p.instances[instance.OrganizationID] = byOrg
	}

	byOrg[instance.ID] = instance

	return nil
}

func (r *memoryInstanceRepository) GetByID(_ context.Context, organizationID, id string) (*models.WorkflowInstance, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	instance, ok := r.p.instances[organizationID][id]
	if !ok {
		return nil, &persistence.InstanceError{
			Op:             "get",
			OrganizationID: organizationID,
			InstanceID:     id,
			Err:            persistence.ErrInstanceNotFound,
		}
	}

	return instance, nil
}

func (r *memoryInstanceRepository) ListByDefinition(_ context.Context, organizationID, definitionID string) ([]*models.WorkflowInstance, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	instances := make([]*models.WorkflowInstance, 0)

	for _, instance := range r.p.instances[organizationID] {
		if instance.WorkflowDefinitionID == definitionID {
			instances = append(instances, instance)
		}
	}

	sort.Slice(instances, func(i, j int) bool {
		return instances[i].CreatedAt.Before(instances[j].CreatedAt)
	})

	return instances, nil
}

func (r *memoryInstanceRepository) CountByDefinition(ctx context.Context, organizationID, definitionID string) (int64, error) {
	instances, err := r.ListByDefinition(ctx, organizationID, definitionID)
	if err != nil {
		return 0, err
	}

	return int64(len(instances)), nil
}
