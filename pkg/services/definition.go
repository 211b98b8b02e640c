package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/calyptra/stateflow/pkg/models"
	"github.com/calyptra/stateflow/pkg/persistence"
	"github.com/google/uuid"
)

// Definition handles workflow definition management. Definitions are authored
// as drafts, validated structurally and semantically on every write, and
// become immutable except for additive changes once activated.
type Definition struct {
	definitions persistence.DefinitionRepository
	instances   persistence.InstanceRepository
}

func NewDefinition(definitions persistence.DefinitionRepository, instances persistence.InstanceRepository) *Definition {
	return &Definition{
		definitions: definitions,
		instances:   instances,
	}
}

// Create validates and stores a new draft definition from a raw document.
func (s *Definition) Create(ctx context.Context, organizationID string, document map[string]any) (*models.WorkflowDefinition, error) {
	if organizationID == "" {
		return nil, ErrEmptyOrganizationID
	}

	definition, err := s.decode(document)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	definition.ID = uuid.New().String()
	definition.OrganizationID = organizationID
	definition.Status = models.DefinitionStatusDraft
	definition.CreatedAt = now
	definition.UpdatedAt = now

	if err := s.definitions.Save(ctx, definition); err != nil {
		return nil, fmt.Errorf("failed to save definition: %w", err)
	}

	return definition, nil
}

// Update replaces a definition's document. Draft definitions accept any valid
// document; active definitions accept only additive changes, since running
// instances depend on the existing graph.
func (s *Definition) Update(ctx context.Context, organizationID, id string, document map[string]any) (*models.WorkflowDefinition, error) {
	existing, err := s.definitions.GetByID(ctx, organizationID, id)
	if err != nil {
		return nil, err
	}

	updated, err := s.decode(document)
	if err != nil {
		return nil, err
	}

	if existing.Status == models.DefinitionStatusActive {
		if updated.EntityType != existing.EntityType {
			return nil, &ServiceError{
				Op:      "UpdateDefinition",
				Code:    "ENTITY_TYPE_IMMUTABLE",
				Message: "entity type cannot change on an active definition",
				Err:     ErrCannotModifyActive,
			}
		}

		if err := checkAdditive(existing, updated); err != nil {
			return nil, err
		}
	}

	updated.ID = existing.ID
	updated.OrganizationID = existing.OrganizationID
	updated.Status = existing.Status
	updated.CreatedAt = existing.CreatedAt
	updated.ActivatedAt = existing.ActivatedAt
	updated.UpdatedAt = time.Now().UTC()

	if err := s.definitions.Save(ctx, updated); err != nil {
		return nil, fmt.Errorf("failed to save definition: %w", err)
	}

	return updated, nil
}

// Activate promotes a draft definition. Only active definitions can spawn
// instances.
func (s *Definition) Activate(ctx context.Context, organizationID, id string) (*models.WorkflowDefinition, error) {
	definition, err := s.definitions.GetByID(ctx, organizationID, id)
	if err != nil {
		return nil, err
	}

	if definition.Status == models.DefinitionStatusActive {
		return nil, &ServiceError{
			Op:   "ActivateDefinition",
			Code: "ALREADY_ACTIVE",
			Err:  ErrAlreadyActive,
		}
	}

	if err := definition.Validate(); err != nil {
		return nil, NewValidationError("ActivateDefinition", "INVALID_DEFINITION", err.Error(), ErrInvalidDefinition)
	}

	now := time.Now().UTC()
	definition.Status = models.DefinitionStatusActive
	definition.ActivatedAt = &now
	definition.UpdatedAt = now

	if err := s.definitions.Save(ctx, definition); err != nil {
		return nil, fmt.Errorf("failed to save definition: %w", err)
	}

	return definition, nil
}

func (s *Definition) Get(ctx context.Context, organizationID, id string) (*models.WorkflowDefinition, error) {
	return s.definitions.GetByID(ctx, organizationID, id)
}

func (s *Definition) List(ctx context.Context, organizationID string) ([]*models.WorkflowDefinition, error) {
	if organizationID == "" {
		return nil, ErrEmptyOrganizationID
	}

	return s.definitions.ListByOrganization(ctx, organizationID)
}

// Delete removes a draft definition. Active definitions and definitions with
// instances are kept for the audit trail.
func (s *Definition) Delete(ctx context.Context, organizationID, id string) error {
	definition, err := s.definitions.GetByID(ctx, organizationID, id)
	if err != nil {
		return err
	}

	if definition.Status == models.DefinitionStatusActive {
		return &ServiceError{
			Op:   "DeleteDefinition",
			Code: "DEFINITION_ACTIVE",
			Err:  ErrCannotModifyActive,
		}
	}

	count, err := s.instances.CountByDefinition(ctx, organizationID, id)
	if err != nil {
		return fmt.Errorf("failed to count instances: %w", err)
	}

	if count > 0 {
		return &ServiceError{
			Op:   "DeleteDefinition",
			Code: "INSTANCES_EXIST",
			Err:  ErrCannotDeleteWithInstances,
		}
	}

	return s.definitions.Delete(ctx, organizationID, id)
}

// decode runs the structural schema check, then unmarshals and semantically
// validates the document.
func (s *Definition) decode(document map[string]any) (*models.WorkflowDefinition, error) {
	if err := validateDefinitionDocument(document); err != nil {
		return nil, NewValidationError("DecodeDefinition", "SCHEMA_VALIDATION", err.Error(), ErrInvalidDefinition)
	}

	raw, err := json.Marshal(document)
	if err != nil {
		return nil, NewValidationError("DecodeDefinition", "MALFORMED_DOCUMENT", err.Error(), ErrInvalidRequest)
	}

	var definition models.WorkflowDefinition
	if err := json.Unmarshal(raw, &definition); err != nil {
		return nil, NewValidationError("DecodeDefinition", "MALFORMED_DOCUMENT", err.Error(), ErrInvalidRequest)
	}

	if err := definition.Validate(); err != nil {
		return nil, NewValidationError("DecodeDefinition", "INVALID_DEFINITION", err.Error(), ErrInvalidDefinition)
	}

	return &definition, nil
}

// checkAdditive verifies that updated keeps every state and transition of
// existing intact.
func checkAdditive(existing, updated *models.WorkflowDefinition) error {
	for _, state := range existing.States {
		kept, ok := updated.StateByName(state.Name)
		if !ok || kept.Initial != state.Initial || kept.Final != state.Final {
			return &ServiceError{
				Op:      "UpdateDefinition",
				Code:    "STATE_REMOVED",
				Message: fmt.Sprintf("state %q removed or altered", state.Name),
				Err:     ErrCannotRemoveInUse,
			}
		}
	}

	for _, transition := range existing.Transitions {
		found := false

		for _, kept := range updated.Transitions {
			if kept.From == transition.From && kept.To == transition.To {
				found = true

				break
			}
		}

		if !found {
			return &ServiceError{
				Op:      "UpdateDefinition",
				Code:    "TRANSITION_REMOVED",
				Message: fmt.Sprintf("transition %s -> %s removed", transition.From, transition.To),
				Err:     ErrCannotRemoveInUse,
			}
		}
	}

	return nil
}
