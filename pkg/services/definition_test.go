package services

import (
	"context"
	"testing"

	"github.com/calyptra/stateflow/pkg/models"
	"github.com/calyptra/stateflow/pkg/persistence"
	"github.com/calyptra/stateflow/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDefinitionService() (*Definition, *testutil.MemoryPersistence) {
	p := testutil.NewMemoryPersistence()

	return NewDefinition(p.DefinitionRepository(), p.InstanceRepository()), p
}

func validDocument() map[string]any {
	return map[string]any{
		"name":        "invoice approval",
		"entity_type": "invoice",
		"states": []any{
			map[string]any{"name": "submitted", "initial": true},
			map[string]any{"name": "approved", "final": true},
		},
		"transitions": []any{
			map[string]any{"from": "submitted", "to": "approved"},
		},
	}
}

func TestDefinition_Create(t *testing.T) {
	service, _ := newDefinitionService()

	definition, err := service.Create(context.Background(), "org-1", validDocument())
	require.NoError(t, err)

	assert.NotEmpty(t, definition.ID)
	assert.Equal(t, "org-1", definition.OrganizationID)
	assert.Equal(t, models.DefinitionStatusDraft, definition.Status)
	assert.Nil(t, definition.ActivatedAt)
}

func TestDefinition_Create_SchemaRejection(t *testing.T) {
	service, _ := newDefinitionService()

	document := validDocument()
	delete(document, "entity_type")

	_, err := service.Create(context.Background(), "org-1", document)
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
}

func TestDefinition_Create_SemanticRejection(t *testing.T) {
	service, _ := newDefinitionService()

	document := validDocument()
	document["transitions"] = []any{
		map[string]any{"from": "submitted", "to": "nowhere"},
	}

	_, err := service.Create(context.Background(), "org-1", document)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidDefinition)
}

func TestDefinition_Create_EmptyOrganization(t *testing.T) {
	service, _ := newDefinitionService()

	_, err := service.Create(context.Background(), "", validDocument())
	assert.ErrorIs(t, err, ErrEmptyOrganizationID)
}

func TestDefinition_Activate(t *testing.T) {
	service, _ := newDefinitionService()
	ctx := context.Background()

	definition, err := service.Create(ctx, "org-1", validDocument())
	require.NoError(t, err)

	activated, err := service.Activate(ctx, "org-1", definition.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DefinitionStatusActive, activated.Status)
	require.NotNil(t, activated.ActivatedAt)

	_, err = service.Activate(ctx, "org-1", definition.ID)
	assert.ErrorIs(t, err, ErrAlreadyActive)
	assert.True(t, IsConflictError(err))
}

func TestDefinition_Update_Draft(t *testing.T) {
	service, _ := newDefinitionService()
	ctx := context.Background()

	definition, err := service.Create(ctx, "org-1", validDocument())
	require.NoError(t, err)

	document := validDocument()
	document["states"] = []any{
		map[string]any{"name": "submitted", "initial": true},
		map[string]any{"name": "rejected", "final": true},
	}
	document["transitions"] = []any{
		map[string]any{"from": "submitted", "to": "rejected"},
	}

	updated, err := service.Update(ctx, "org-1", definition.ID, document)
	require.NoError(t, err)

	_, hasApproved := updated.StateByName("approved")
	assert.False(t, hasApproved)
	assert.Equal(t, definition.ID, updated.ID)
	assert.Equal(t, models.DefinitionStatusDraft, updated.Status)
}

func TestDefinition_Update_ActiveIsAdditiveOnly(t *testing.T) {
	service, _ := newDefinitionService()
	ctx := context.Background()

	definition, err := service.Create(ctx, "org-1", validDocument())
	require.NoError(t, err)
	_, err = service.Activate(ctx, "org-1", definition.ID)
	require.NoError(t, err)

	// Adding a state and a transition is allowed.
	document := validDocument()
	document["states"] = []any{
		map[string]any{"name": "submitted", "initial": true},
		map[string]any{"name": "approved", "final": true},
		map[string]any{"name": "rejected", "final": true},
	}
	document["transitions"] = []any{
		map[string]any{"from": "submitted", "to": "approved"},
		map[string]any{"from": "submitted", "to": "rejected"},
	}

	updated, err := service.Update(ctx, "org-1", definition.ID, document)
	require.NoError(t, err)
	assert.Len(t, updated.States, 3)
	assert.Equal(t, models.DefinitionStatusActive, updated.Status)

	// Removing a transition is not.
	document["transitions"] = []any{
		map[string]any{"from": "submitted", "to": "rejected"},
	}

	_, err = service.Update(ctx, "org-1", definition.ID, document)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCannotRemoveInUse)
	assert.True(t, IsConflictError(err))
}

func TestDefinition_Delete(t *testing.T) {
	service, _ := newDefinitionService()
	ctx := context.Background()

	definition, err := service.Create(ctx, "org-1", validDocument())
	require.NoError(t, err)

	require.NoError(t, service.Delete(ctx, "org-1", definition.ID))

	_, err = service.Get(ctx, "org-1", definition.ID)
	assert.True(t, persistence.IsDefinitionNotFound(err))

	// An active definition stays.
	active, err := service.Create(ctx, "org-1", validDocument())
	require.NoError(t, err)
	_, err = service.Activate(ctx, "org-1", active.ID)
	require.NoError(t, err)

	err = service.Delete(ctx, "org-1", active.ID)
	assert.ErrorIs(t, err, ErrCannotModifyActive)
}

func TestDefinition_Delete_WithInstances(t *testing.T) {
	service, p := newDefinitionService()
	ctx := context.Background()

	created, err := service.Create(ctx, "org-1", validDocument())
	require.NoError(t, err)

	instance := testutil.CreateTestInstance(testutil.CreateTestDefinition(func(d *models.WorkflowDefinition) {
		d.ID = created.ID
		d.OrganizationID = "org-1"
	}))
	require.NoError(t, p.InstanceRepository().Save(ctx, instance))

	err = service.Delete(ctx, "org-1", created.ID)
	assert.ErrorIs(t, err, ErrCannotDeleteWithInstances)
}

func TestDefinition_List(t *testing.T) {
	service, _ := newDefinitionService()
	ctx := context.Background()

	_, err := service.Create(ctx, "org-1", validDocument())
	require.NoError(t, err)
	_, err = service.Create(ctx, "org-1", validDocument())
	require.NoError(t, err)
	_, err = service.Create(ctx, "org-2", validDocument())
	require.NoError(t, err)

	definitions, err := service.List(ctx, "org-1")
	require.NoError(t, err)
	assert.Len(t, definitions, 2)

	_, err = service.List(ctx, "")
	assert.ErrorIs(t, err, ErrEmptyOrganizationID)
}
