// Package web provides HTTP request and response types for the workflow API.
package web

// StartInstanceRequest represents the request body for starting a workflow
// instance.
type StartInstanceRequest struct {
	DefinitionID string         `json:"definition_id" validate:"required"`
	EntityID     string         `json:"entity_id"     validate:"required"`
	Context      map[string]any `json:"context,omitempty"`
}

// TransitionRequest represents the request body for transitioning an
// instance. Entity is the caller's snapshot of the tracked business record,
// used for guard evaluation.
type TransitionRequest struct {
	ToState        string         `json:"to_state" validate:"required"`
	Actor          string         `json:"actor"`
	Entity         map[string]any `json:"entity,omitempty"`
	ContextUpdates map[string]any `json:"context_updates,omitempty"`
}

// CancelRequest represents the request body for cancelling an instance.
type CancelRequest struct {
	Actor string `json:"actor"`
}

// AvailableTransitionsRequest carries the entity snapshot used to evaluate
// expression guards.
type AvailableTransitionsRequest struct {
	Entity map[string]any `json:"entity,omitempty"`
}
