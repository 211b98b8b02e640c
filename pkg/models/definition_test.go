package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validDefinition() *WorkflowDefinition {
	return &WorkflowDefinition{
		ID:             "def-1",
		OrganizationID: "org-1",
		Name:           "expense approval",
		EntityType:     "expense",
		Status:         DefinitionStatusDraft,
		States: []State{
			{Name: "submitted", Initial: true},
			{Name: "review"},
			{Name: "approved", Final: true},
		},
		Transitions: []Transition{
			{From: "submitted", To: "review"},
			{From: "review", To: "approved", Guard: &GuardSpec{
				Kind:       GuardKindExpression,
				Expression: "entity.amount < 100",
			}},
		},
	}
}

func TestWorkflowDefinition_Validate(t *testing.T) {
	require.NoError(t, validDefinition().Validate())
}

func TestWorkflowDefinition_Validate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*WorkflowDefinition)
		wantErr error
	}{
		{
			name:    "no states",
			mutate:  func(d *WorkflowDefinition) { d.States = nil },
			wantErr: ErrNoStates,
		},
		{
			name:    "empty state name",
			mutate:  func(d *WorkflowDefinition) { d.States[1].Name = "" },
			wantErr: ErrEmptyStateName,
		},
		{
			name:    "duplicate state",
			mutate:  func(d *WorkflowDefinition) { d.States[1].Name = "submitted" },
			wantErr: ErrDuplicateState,
		},
		{
			name:    "no initial state",
			mutate:  func(d *WorkflowDefinition) { d.States[0].Initial = false },
			wantErr: ErrInitialStateCount,
		},
		{
			name:    "two initial states",
			mutate:  func(d *WorkflowDefinition) { d.States[1].Initial = true },
			wantErr: ErrInitialStateCount,
		},
		{
			name:    "transition from unknown state",
			mutate:  func(d *WorkflowDefinition) { d.Transitions[0].From = "limbo" },
			wantErr: ErrUnknownState,
		},
		{
			name:    "transition to unknown state",
			mutate:  func(d *WorkflowDefinition) { d.Transitions[0].To = "limbo" },
			wantErr: ErrUnknownState,
		},
		{
			name: "duplicate transition",
			mutate: func(d *WorkflowDefinition) {
				d.Transitions = append(d.Transitions, Transition{From: "submitted", To: "review"})
			},
			wantErr: ErrDuplicateTransition,
		},
		{
			name: "expression guard without expression",
			mutate: func(d *WorkflowDefinition) {
				d.Transitions[1].Guard = &GuardSpec{Kind: GuardKindExpression}
			},
			wantErr: ErrEmptyGuardExpression,
		},
		{
			name: "unknown guard kind",
			mutate: func(d *WorkflowDefinition) {
				d.Transitions[1].Guard = &GuardSpec{Kind: "oracle"}
			},
			wantErr: ErrUnknownGuardKind,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			definition := validDefinition()
			tt.mutate(definition)

			err := definition.Validate()
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestWorkflowDefinition_Lookups(t *testing.T) {
	definition := validDefinition()

	initial, ok := definition.InitialState()
	require.True(t, ok)
	assert.Equal(t, "submitted", initial.Name)

	state, ok := definition.StateByName("approved")
	require.True(t, ok)
	assert.True(t, state.Final)

	_, ok = definition.StateByName("limbo")
	assert.False(t, ok)

	outgoing := definition.TransitionsFrom("review")
	require.Len(t, outgoing, 1)
	assert.Equal(t, "approved", outgoing[0].To)

	assert.Empty(t, definition.TransitionsFrom("approved"))
}
