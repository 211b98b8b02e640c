package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWorkflowInstance_Terminal(t *testing.T) {
	instance := &WorkflowInstance{Status: InstanceStatusActive}
	assert.False(t, instance.Terminal())

	instance.Status = InstanceStatusCompleted
	assert.True(t, instance.Terminal())

	instance.Status = InstanceStatusCancelled
	assert.True(t, instance.Terminal())
}

func TestWorkflowInstance_MergeContext(t *testing.T) {
	instance := &WorkflowInstance{}

	instance.MergeContext(nil)
	assert.Nil(t, instance.Context)

	instance.MergeContext(map[string]any{"a": 1, "b": "x"})
	assert.Equal(t, 1, instance.Context["a"])

	instance.MergeContext(map[string]any{"a": 2, "c": true})
	assert.Equal(t, 2, instance.Context["a"])
	assert.Equal(t, "x", instance.Context["b"])
	assert.Equal(t, true, instance.Context["c"])
}

func TestWorkflowInstance_ExecutedPath(t *testing.T) {
	now := time.Now().UTC()
	instance := &WorkflowInstance{
		History: []HistoryEntry{
			{FromState: "draft", ToState: "review", Executed: true, Timestamp: now},
			{FromState: "review", ToState: "approved", Executed: false, Timestamp: now},
			{FromState: "review", ToState: "rejected", Executed: true, Timestamp: now},
		},
	}

	path := instance.ExecutedPath()
	assert.Equal(t, [][2]string{
		{"draft", "review"},
		{"review", "rejected"},
	}, path)
}
