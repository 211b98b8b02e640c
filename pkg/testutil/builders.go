// Package testutil provides test data builders and in-memory storage for
// testing.
package testutil

import (
	"time"

	"github.com/calyptra/stateflow/pkg/models"
	"github.com/google/uuid"
)

// CreateTestDefinition creates an active approval workflow definition with
// default values that can be overridden.
func CreateTestDefinition(overrides ...func(*models.WorkflowDefinition)) *models.WorkflowDefinition {
	definition := &models.WorkflowDefinition{
		ID:             uuid.New().String(),
		OrganizationID: "org-test",
		Name:           "Test Approval",
		EntityType:     "purchase_order",
		Status:         models.DefinitionStatusActive,
		States: []models.State{
			{Name: "draft", Initial: true},
			{Name: "review"},
			{Name: "approved", Final: true},
			{Name: "rejected", Final: true},
		},
		Transitions: []models.Transition{
			{From: "draft", To: "review"},
			{From: "review", To: "approved"},
			{From: "review", To: "rejected"},
		},
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	for _, override := range overrides {
		override(definition)
	}

	return definition
}

// WithGuard replaces the guard of the from -> to transition.
func WithGuard(from, to string, guard *models.GuardSpec) func(*models.WorkflowDefinition) {
	return func(d *models.WorkflowDefinition) {
		for i := range d.Transitions {
			if d.Transitions[i].From == from && d.Transitions[i].To == to {
				d.Transitions[i].Guard = guard
			}
		}
	}
}

// WithAction replaces the action of the from -> to transition.
func WithAction(from, to string, action *models.ActionSpec) func(*models.WorkflowDefinition) {
	return func(d *models.WorkflowDefinition) {
		for i := range d.Transitions {
			if d.Transitions[i].From == from && d.Transitions[i].To == to {
				d.Transitions[i].Action = action
			}
		}
	}
}

// WithDraftStatus marks the definition as a draft.
func WithDraftStatus() func(*models.WorkflowDefinition) {
	return func(d *models.WorkflowDefinition) {
		d.Status = models.DefinitionStatusDraft
		d.ActivatedAt = nil
	}
}

// CreateTestInstance creates an active instance of the given definition
// positioned at its initial state.
func CreateTestInstance(definition *models.WorkflowDefinition, overrides ...func(*models.WorkflowInstance)) *models.WorkflowInstance {
	initial, _ := definition.InitialState()

	instance := &models.WorkflowInstance{
		ID:                   uuid.New().String(),
		OrganizationID:       definition.OrganizationID,
		WorkflowDefinitionID: definition.ID,
		EntityType:           definition.EntityType,
		EntityID:             uuid.New().String(),
		CurrentState:         initial.Name,
		Status:               models.InstanceStatusActive,
		Context:              map[string]any{},
		History:              []models.HistoryEntry{},
		CreatedAt:            time.Now().UTC(),
		UpdatedAt:            time.Now().UTC(),
	}

	for _, override := range overrides {
		override(instance)
	}

	return instance
}

// AtState positions the instance at the given state.
func AtState(state string) func(*models.WorkflowInstance) {
	return func(i *models.WorkflowInstance) {
		i.CurrentState = state
	}
}

// WithContext seeds the instance context.
func WithContext(context map[string]any) func(*models.WorkflowInstance) {
	return func(i *models.WorkflowInstance) {
		i.Context = context
	}
}
