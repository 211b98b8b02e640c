package models

import "errors"

// Structural validation errors for workflow definitions.
var (
	ErrNoStates             = errors.New("definition declares no states")
	ErrEmptyStateName       = errors.New("state name cannot be empty")
	ErrDuplicateState       = errors.New("duplicate state name")
	ErrInitialStateCount    = errors.New("exactly one state must be initial")
	ErrUnknownState         = errors.New("transition references undeclared state")
	ErrDuplicateTransition  = errors.New("duplicate transition for (from, to) pair")
	ErrEmptyGuardExpression = errors.New("expression guard requires a non-empty expression")
	ErrUnknownGuardKind     = errors.New("unknown guard kind")
)
