// Package ai defines the guard evaluation port the engine delegates judgment
// calls to, plus the OpenAI-backed implementation. The engine treats the port
// as slow and fallible: calls are bounded by the caller's context and a failed
// call is a guard rejection, never a crash.
package ai

import (
	"context"

	"github.com/calyptra/stateflow/pkg/models"
)

// InstanceView is the slice of instance state shared with the evaluator.
type InstanceView struct {
	CurrentState string         `json:"current_state"`
	Context      map[string]any `json:"context,omitempty"`
}

// TransitionView is the slice of the requested transition shared with the
// evaluator.
type TransitionView struct {
	From  string            `json:"from"`
	To    string            `json:"to"`
	Guard *models.GuardSpec `json:"guard,omitempty"`
}

// GuardDecision is the verdict returned by a guard evaluator.
type GuardDecision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
	Model   string `json:"model,omitempty"`
}

// GuardEvaluator decides whether an AI-gated transition may fire. An error
// return means the evaluator was unavailable or produced no verdict; the
// engine records it as a guard failure.
type GuardEvaluator interface {
	EvaluateGuard(
		ctx context.Context,
		entity map[string]any,
		instance InstanceView,
		transition TransitionView,
		toState string,
	) (GuardDecision, error)
}
