// Package models defines the core domain models for the workflow transition engine.
package models

import (
	"fmt"
	"time"
)

// DefinitionStatus represents the lifecycle state of a workflow definition.
type DefinitionStatus string

const (
	DefinitionStatusDraft  DefinitionStatus = "draft"  // Editable, no instances may be started
	DefinitionStatusActive DefinitionStatus = "active" // Executable; safety-critical fields are append-only
)

// GuardKind discriminates the guard variants a transition may carry.
type GuardKind string

const (
	GuardKindNone       GuardKind = "none"
	GuardKindExpression GuardKind = "expression"
	GuardKindAI         GuardKind = "ai"
)

// GuardSpec gates whether a transition may fire. Exactly one variant applies:
// no guard, a sandboxed boolean expression, or a judgment call delegated to
// the AI guard evaluator.
type GuardSpec struct {
	Kind       GuardKind `json:"kind"                 validate:"required,oneof=none expression ai"`
	Expression string    `json:"expression,omitempty"`
	ModelHint  string    `json:"model_hint,omitempty"`
}

// ActionSpec names a side-effect to run after a transition is applied.
// Action execution is best-effort and never rolls back the state change.
type ActionSpec struct {
	Type   string         `json:"type"             validate:"required"`
	Config map[string]any `json:"config,omitempty"`
}

// State is one node of the definition graph. Name is the unique key.
type State struct {
	Name     string         `json:"name"               validate:"required,min=1"`
	Initial  bool           `json:"initial"`
	Final    bool           `json:"final"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Transition is one directed edge of the definition graph.
type Transition struct {
	From   string      `json:"from"             validate:"required"`
	To     string      `json:"to"               validate:"required"`
	Guard  *GuardSpec  `json:"guard,omitempty"`
	Action *ActionSpec `json:"action,omitempty"`
}

// WorkflowDefinition is the static graph of states and guarded transitions
// governing one entity type. Immutable-in-the-critical-parts once activated.
type WorkflowDefinition struct {
	ID             string           `json:"id"`
	OrganizationID string           `json:"organization_id"`
	Name           string           `json:"name"        validate:"required,min=3"`
	EntityType     string           `json:"entity_type" validate:"required"`
	Status         DefinitionStatus `json:"status"`
	States         []State          `json:"states"      validate:"required,min=1,dive"`
	Transitions    []Transition     `json:"transitions" validate:"dive"`
	Metadata       map[string]any   `json:"metadata,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
	ActivatedAt    *time.Time       `json:"activated_at,omitempty"`
}

// InitialState returns the state marked initial. Validate guarantees there is
// exactly one.
func (d *WorkflowDefinition) InitialState() (State, bool) {
	for _, s := range d.States {
		if s.Initial {
			return s, true
		}
	}

	return State{}, false
}

// StateByName looks up a declared state by its unique name.
func (d *WorkflowDefinition) StateByName(name string) (State, bool) {
	for _, s := range d.States {
		if s.Name == name {
			return s, true
		}
	}

	return State{}, false
}

// TransitionsFrom returns the outgoing edges of the given state, in the order
// they were declared.
func (d *WorkflowDefinition) TransitionsFrom(from string) []Transition {
	out := make([]Transition, 0)

	for _, t := range d.Transitions {
		if t.From == from {
			out = append(out, t)
		}
	}

	return out
}

// Validate checks the structural invariants of the definition graph:
// exactly one initial state, unique state names, edges that reference
// declared states only, and no ambiguous duplicate (from, to) edges.
func (d *WorkflowDefinition) Validate() error {
	if len(d.States) == 0 {
		return fmt.Errorf("definition %q: %w", d.Name, ErrNoStates)
	}

	names := make(map[string]struct{}, len(d.States))
	initials := 0

	for _, s := range d.States {
		if s.Name == "" {
			return fmt.Errorf("definition %q: %w", d.Name, ErrEmptyStateName)
		}

		if _, dup := names[s.Name]; dup {
			return fmt.Errorf("definition %q, state %q: %w", d.Name, s.Name, ErrDuplicateState)
		}

		names[s.Name] = struct{}{}

		if s.Initial {
			initials++
		}
	}

	if initials != 1 {
		return fmt.Errorf("definition %q has %d initial states: %w", d.Name, initials, ErrInitialStateCount)
	}

	edges := make(map[[2]string]struct{}, len(d.Transitions))

	for _, t := range d.Transitions {
		if _, ok := names[t.From]; !ok {
			return fmt.Errorf("transition %s -> %s: from state: %w", t.From, t.To, ErrUnknownState)
		}

		if _, ok := names[t.To]; !ok {
			return fmt.Errorf("transition %s -> %s: to state: %w", t.From, t.To, ErrUnknownState)
		}

		key := [2]string{t.From, t.To}
		if _, dup := edges[key]; dup {
			return fmt.Errorf("transition %s -> %s: %w", t.From, t.To, ErrDuplicateTransition)
		}

		edges[key] = struct{}{}

		if err := t.validateGuard(); err != nil {
			return fmt.Errorf("transition %s -> %s: %w", t.From, t.To, err)
		}
	}

	return nil
}

func (t Transition) validateGuard() error {
	if t.Guard == nil {
		return nil
	}

	switch t.Guard.Kind {
	case GuardKindNone, GuardKindAI:
		return nil
	case GuardKindExpression:
		if t.Guard.Expression == "" {
			return ErrEmptyGuardExpression
		}

		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownGuardKind, t.Guard.Kind)
	}
}
