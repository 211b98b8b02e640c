// Package events defines event types and structures for workflow instance
// lifecycle notifications.
package events

import (
	"time"

	"github.com/calyptra/stateflow/pkg/models"
	"github.com/google/uuid"
)

type EventType string

// Topic carries all workflow instance lifecycle events.
const Topic = "stateflow.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	WorkflowInstanceStartedEvent   EventType = "workflow.instance.started"
	WorkflowTransitionedEvent      EventType = "workflow.instance.transitioned"
	WorkflowInstanceCompletedEvent EventType = "workflow.instance.completed"
	WorkflowInstanceCancelledEvent EventType = "workflow.instance.cancelled"
)

type BaseEvent struct {
	ID             string         `json:"id"`
	Type           EventType      `json:"type"`
	Timestamp      time.Time      `json:"timestamp"`
	OrganizationID string         `json:"organization_id"`
	InstanceID     string         `json:"instance_id"`
	DefinitionID   string         `json:"definition_id"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

type WorkflowInstanceStarted struct {
	BaseEvent

	EntityType   string         `json:"entity_type"`
	EntityID     string         `json:"entity_id"`
	InitialState string         `json:"initial_state"`
	Context      map[string]any `json:"context,omitempty"`
}

func (w WorkflowInstanceStarted) GetType() EventType {
	return WorkflowInstanceStartedEvent
}

type WorkflowTransitioned struct {
	BaseEvent

	FromState   string               `json:"from_state"`
	ToState     string               `json:"to_state"`
	TriggeredBy string               `json:"triggered_by,omitempty"`
	GuardResult *models.GuardOutcome `json:"guard_result,omitempty"`
}

func (w WorkflowTransitioned) GetType() EventType {
	return WorkflowTransitionedEvent
}

type WorkflowInstanceCompleted struct {
	BaseEvent

	FinalState string        `json:"final_state"`
	EntityType string        `json:"entity_type"`
	EntityID   string        `json:"entity_id"`
	Duration   time.Duration `json:"duration"`
}

func (w WorkflowInstanceCompleted) GetType() EventType {
	return WorkflowInstanceCompletedEvent
}

type WorkflowInstanceCancelled struct {
	BaseEvent

	CancelledBy string `json:"cancelled_by,omitempty"`
	LastState   string `json:"last_state"`
}

func (w WorkflowInstanceCancelled) GetType() EventType {
	return WorkflowInstanceCancelledEvent
}

func NewBaseEvent(eventType EventType, organizationID, instanceID, definitionID string) BaseEvent {
	return BaseEvent{
		ID:             uuid.New().String(),
		Type:           eventType,
		Timestamp:      time.Now().UTC(),
		OrganizationID: organizationID,
		InstanceID:     instanceID,
		DefinitionID:   definitionID,
		Metadata:       make(map[string]any),
	}
}
