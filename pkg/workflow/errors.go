package workflow

import (
	"errors"
	"fmt"

	"github.com/calyptra/stateflow/pkg/models"
)

var (
	// ErrTransitionNotFound means the definition has no edge between the
	// instance's current state and the requested target state.
	ErrTransitionNotFound = errors.New("no transition found")

	// ErrInstanceTerminal means the instance is completed or cancelled and
	// accepts no further transitions.
	ErrInstanceTerminal = errors.New("workflow instance is terminal")

	// ErrConcurrentTransition means another transition on the same instance
	// is still in flight. The caller should retry after it settles.
	ErrConcurrentTransition = errors.New("concurrent transition in progress")

	// ErrDefinitionNotActive means the definition is still a draft and
	// cannot spawn instances.
	ErrDefinitionNotActive = errors.New("workflow definition is not active")

	// ErrAIGuardUnavailable means a transition requires an AI judgment call
	// but no guard evaluator is configured.
	ErrAIGuardUnavailable = errors.New("ai guard evaluator not configured")
)

// GuardRejectedError carries the guard outcome of a denied transition. The
// denial is recorded in the instance history before this error is returned.
type GuardRejectedError struct {
	From   string
	To     string
	Reason string
	Result models.GuardOutcome
}

func (e *GuardRejectedError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("transition %s -> %s rejected: %s", e.From, e.To, e.Reason)
	}

	return fmt.Sprintf("transition %s -> %s rejected by guard", e.From, e.To)
}

// IsGuardRejected reports whether err is a guard denial.
func IsGuardRejected(err error) bool {
	var gre *GuardRejectedError

	return errors.As(err, &gre)
}
