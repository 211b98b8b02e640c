package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/calyptra/stateflow/pkg/models"
	"github.com/calyptra/stateflow/pkg/persistence"
	backend "github.com/redis/go-redis/v9"
)

// InstanceRepository stores instances (history included) as JSON values plus
// a per-definition set index.
type InstanceRepository struct {
	client *backend.Client
	prefix string
}

func (ir *InstanceRepository) key(organizationID, id string) string {
	return orgKey(ir.prefix, organizationID, "instance", id)
}

func (ir *InstanceRepository) indexKey(organizationID, definitionID string) string {
	return orgKey(ir.prefix, organizationID, "definition", definitionID, "instances")
}

func (ir *InstanceRepository) Save(ctx context.Context, instance *models.WorkflowInstance) error {
	data, err := json.Marshal(instance)
	if err != nil {
		return &persistence.InstanceError{
			Op: "Save", OrganizationID: instance.OrganizationID, InstanceID: instance.ID,
			Err: fmt.Errorf("failed to marshal instance: %w", err),
		}
	}

	pipe := ir.client.Pipeline()
	pipe.Set(ctx, ir.key(instance.OrganizationID, instance.ID), data, 0)
	pipe.SAdd(ctx, ir.indexKey(instance.OrganizationID, instance.WorkflowDefinitionID), instance.ID)

	if _, err := pipe.Exec(ctx); err != nil {
		return &persistence.InstanceError{
			Op: "Save", OrganizationID: instance.OrganizationID, InstanceID: instance.ID, Err: err,
		}
	}

	return nil
}

func (ir *InstanceRepository) GetByID(ctx context.Context, organizationID, id string) (*models.WorkflowInstance, error) {
	data, err := ir.client.Get(ctx, ir.key(organizationID, id)).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, &persistence.InstanceError{
				Op: "GetByID", OrganizationID: organizationID, InstanceID: id,
				Err: persistence.ErrInstanceNotFound,
			}
		}

		return nil, &persistence.InstanceError{Op: "GetByID", OrganizationID: organizationID, InstanceID: id, Err: err}
	}

	var instance models.WorkflowInstance
	if err := json.Unmarshal(data, &instance); err != nil {
		return nil, &persistence.InstanceError{Op: "GetByID", OrganizationID: organizationID, InstanceID: id, Err: err}
	}

	return &instance, nil
}

func (ir *InstanceRepository) ListByDefinition(ctx context.Context, organizationID, definitionID string) ([]*models.WorkflowInstance, error) {
	ids, err := ir.client.SMembers(ctx, ir.indexKey(organizationID, definitionID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list instances for %s/%s: %w", organizationID, definitionID, err)
	}

	instances := make([]*models.WorkflowInstance, 0, len(ids))

	for _, id := range ids {
		instance, err := ir.GetByID(ctx, organizationID, id)
		if err != nil {
			if persistence.IsInstanceNotFound(err) {
				continue
			}

			return nil, err
		}

		instances = append(instances, instance)
	}

	sort.Slice(instances, func(i, j int) bool {
		return instances[i].CreatedAt.Before(instances[j].CreatedAt)
	})

	return instances, nil
}

func (ir *InstanceRepository) CountByDefinition(ctx context.Context, organizationID, definitionID string) (int64, error) {
	count, err := ir.client.SCard(ctx, ir.indexKey(organizationID, definitionID)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count instances for %s/%s: %w", organizationID, definitionID, err)
	}

	return count, nil
}
