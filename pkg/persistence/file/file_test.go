package file

import (
	"context"
	"testing"
	"time"

	"github.com/calyptra/stateflow/pkg/models"
	"github.com/calyptra/stateflow/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilePersistence_DefinitionRoundTrip(t *testing.T) {
	p := NewPersistence(t.TempDir())
	ctx := context.Background()

	def := &models.WorkflowDefinition{
		ID:             "def-1",
		OrganizationID: "org-1",
		Name:           "invoice approval",
		EntityType:     "invoice",
		Status:         models.DefinitionStatusDraft,
		States: []models.State{
			{Name: "submitted", Initial: true},
			{Name: "approved", Final: true},
		},
		Transitions: []models.Transition{{From: "submitted", To: "approved"}},
		CreatedAt:   time.Now().UTC(),
	}

	require.NoError(t, p.DefinitionRepository().Save(ctx, def))

	got, err := p.DefinitionRepository().GetByID(ctx, "org-1", "def-1")
	require.NoError(t, err)
	assert.Equal(t, "invoice approval", got.Name)
	assert.Equal(t, models.DefinitionStatusDraft, got.Status)

	_, err = p.DefinitionRepository().GetByID(ctx, "org-2", "def-1")
	assert.True(t, persistence.IsDefinitionNotFound(err))

	defs, err := p.DefinitionRepository().ListByOrganization(ctx, "org-1")
	require.NoError(t, err)
	assert.Len(t, defs, 1)

	require.NoError(t, p.DefinitionRepository().Delete(ctx, "org-1", "def-1"))
	_, err = p.DefinitionRepository().GetByID(ctx, "org-1", "def-1")
	assert.True(t, persistence.IsDefinitionNotFound(err))
}

func TestFilePersistence_InstanceRoundTrip(t *testing.T) {
	p := NewPersistence(t.TempDir())
	ctx := context.Background()

	instance := &models.WorkflowInstance{
		ID:                   "inst-1",
		OrganizationID:       "org-1",
		WorkflowDefinitionID: "def-1",
		EntityType:           "invoice",
		EntityID:             "inv-42",
		CurrentState:         "submitted",
		Status:               models.InstanceStatusActive,
		Context:              map[string]any{"amount": 120.5},
		CreatedAt:            time.Now().UTC(),
	}

	require.NoError(t, p.InstanceRepository().Save(ctx, instance))

	got, err := p.InstanceRepository().GetByID(ctx, "org-1", "inst-1")
	require.NoError(t, err)
	assert.Equal(t, "inv-42", got.EntityID)

	list, err := p.InstanceRepository().ListByDefinition(ctx, "org-1", "def-1")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	count, err := p.InstanceRepository().CountByDefinition(ctx, "org-1", "def-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	count, err = p.InstanceRepository().CountByDefinition(ctx, "org-1", "other")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestFilePersistence_HealthCheck(t *testing.T) {
	p := NewPersistence(t.TempDir())
	require.NoError(t, p.HealthCheck(context.Background()))
	require.NoError(t, p.Close(context.Background()))
}
