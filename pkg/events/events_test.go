package events

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBaseEvent(t *testing.T) {
	event := NewBaseEvent(WorkflowTransitionedEvent, "org-1", "inst-1", "def-1")

	assert.NotEmpty(t, event.ID)
	assert.Equal(t, WorkflowTransitionedEvent, event.Type)
	assert.Equal(t, "org-1", event.OrganizationID)
	assert.Equal(t, "inst-1", event.InstanceID)
	assert.Equal(t, "def-1", event.DefinitionID)
	assert.False(t, event.Timestamp.IsZero())
	assert.NotNil(t, event.Metadata)
}

func TestEventTypes(t *testing.T) {
	assert.Equal(t, "stateflow.events", Topic)

	started := WorkflowInstanceStarted{}
	assert.Equal(t, WorkflowInstanceStartedEvent, started.GetType())

	transitioned := WorkflowTransitioned{}
	assert.Equal(t, WorkflowTransitionedEvent, transitioned.GetType())

	completed := WorkflowInstanceCompleted{}
	assert.Equal(t, WorkflowInstanceCompletedEvent, completed.GetType())

	cancelled := WorkflowInstanceCancelled{}
	assert.Equal(t, WorkflowInstanceCancelledEvent, cancelled.GetType())
}

func TestWorkflowTransitioned_RoundTrip(t *testing.T) {
	event := WorkflowTransitioned{
		BaseEvent: NewBaseEvent(WorkflowTransitionedEvent, "org-1", "inst-1", "def-1"),
		FromState: "draft",
		ToState:   "review",
	}

	payload, err := json.Marshal(event)
	require.NoError(t, err)

	var decoded WorkflowTransitioned
	require.NoError(t, json.Unmarshal(payload, &decoded))
	assert.Equal(t, event.ID, decoded.ID)
	assert.Equal(t, "review", decoded.ToState)
}
