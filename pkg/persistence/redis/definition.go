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

// DefinitionRepository stores definitions as JSON values plus a per-org set
// index for listing.
type DefinitionRepository struct {
	client *backend.Client
	prefix string
}

func (dr *DefinitionRepository) key(organizationID, id string) string {
	return orgKey(dr.prefix, organizationID, "definition", id)
}

func (dr *DefinitionRepository) indexKey(organizationID string) string {
	return orgKey(dr.prefix, organizationID, "definitions")
}

func (dr *DefinitionRepository) Save(ctx context.Context, definition *models.WorkflowDefinition) error {
	data, err := json.Marshal(definition)
	if err != nil {
		return &persistence.DefinitionError{
			Op: "Save", OrganizationID: definition.OrganizationID, DefinitionID: definition.ID,
			Err: fmt.Errorf("failed to marshal definition: %w", err),
		}
	}

	pipe := dr.client.Pipeline()
	pipe.Set(ctx, dr.key(definition.OrganizationID, definition.ID), data, 0)
	pipe.SAdd(ctx, dr.indexKey(definition.OrganizationID), definition.ID)

	if _, err := pipe.Exec(ctx); err != nil {
		return &persistence.DefinitionError{
			Op: "Save", OrganizationID: definition.OrganizationID, DefinitionID: definition.ID, Err: err,
		}
	}

	return nil
}

func (dr *DefinitionRepository) GetByID(ctx context.Context, organizationID, id string) (*models.WorkflowDefinition, error) {
	data, err := dr.client.Get(ctx, dr.key(organizationID, id)).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, &persistence.DefinitionError{
				Op: "GetByID", OrganizationID: organizationID, DefinitionID: id,
				Err: persistence.ErrDefinitionNotFound,
			}
		}

		return nil, &persistence.DefinitionError{Op: "GetByID", OrganizationID: organizationID, DefinitionID: id, Err: err}
	}

	var definition models.WorkflowDefinition
	if err := json.Unmarshal(data, &definition); err != nil {
		return nil, &persistence.DefinitionError{Op: "GetByID", OrganizationID: organizationID, DefinitionID: id, Err: err}
	}

	return &definition, nil
}

func (dr *DefinitionRepository) ListByOrganization(ctx context.Context, organizationID string) ([]*models.WorkflowDefinition, error) {
	ids, err := dr.client.SMembers(ctx, dr.indexKey(organizationID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list definitions for %s: %w", organizationID, err)
	}

	definitions := make([]*models.WorkflowDefinition, 0, len(ids))

	for _, id := range ids {
		definition, err := dr.GetByID(ctx, organizationID, id)
		if err != nil {
			// Index entries may outlive deleted values.
			if persistence.IsDefinitionNotFound(err) {
				continue
			}

			return nil, err
		}

		definitions = append(definitions, definition)
	}

	sort.Slice(definitions, func(i, j int) bool {
		return definitions[i].CreatedAt.Before(definitions[j].CreatedAt)
	})

	return definitions, nil
}

func (dr *DefinitionRepository) Delete(ctx context.Context, organizationID, id string) error {
	deleted, err := dr.client.Del(ctx, dr.key(organizationID, id)).Result()
	if err != nil {
		return &persistence.DefinitionError{Op: "Delete", OrganizationID: organizationID, DefinitionID: id, Err: err}
	}

	if deleted == 0 {
		return &persistence.DefinitionError{
			Op: "Delete", OrganizationID: organizationID, DefinitionID: id,
			Err: persistence.ErrDefinitionNotFound,
		}
	}

	if err := dr.client.SRem(ctx, dr.indexKey(organizationID), id).Err(); err != nil {
		return &persistence.DefinitionError{Op: "Delete", OrganizationID: organizationID, DefinitionID: id, Err: err}
	}

	return nil
}
