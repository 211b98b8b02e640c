package workflow

import (
	"fmt"

	"github.com/calyptra/stateflow/pkg/expr"
	"github.com/calyptra/stateflow/pkg/models"
)

// ValidationResult is the verdict of a transition check. AIRequired is set
// when the transition carries an AI guard; the validator itself never calls
// out to a model, the engine resolves those guards separately.
type ValidationResult struct {
	Valid       bool
	Reason      string
	AIRequired  bool
	GuardResult *models.GuardOutcome
}

// FindTransition looks up the edge from -> to in the definition. The second
// return value reports whether such an edge exists.
func FindTransition(def *models.WorkflowDefinition, from, to string) (*models.Transition, bool) {
	for i := range def.Transitions {
		if def.Transitions[i].From == from && def.Transitions[i].To == to {
			return &def.Transitions[i], true
		}
	}

	return nil, false
}

// ValidateTransition checks whether transition is allowed given the entity
// snapshot and the instance context. It is a pure decision function: no
// stores are touched and no AI calls are made.
func ValidateTransition(transition *models.Transition, entity, context map[string]any) ValidationResult {
	if transition == nil {
		return ValidationResult{Valid: false, Reason: "No transition found"}
	}

	if transition.Guard == nil || transition.Guard.Kind == models.GuardKindNone {
		return ValidationResult{Valid: true}
	}

	switch transition.Guard.Kind {
	case models.GuardKindAI:
		return ValidationResult{
			Valid:      true,
			AIRequired: true,
			GuardResult: &models.GuardOutcome{
				Type: models.GuardKindAI,
			},
		}
	case models.GuardKindExpression:
		return validateExpressionGuard(transition, entity, context)
	default:
		return ValidationResult{
			Valid:  false,
			Reason: fmt.Sprintf("unknown guard kind %q", transition.Guard.Kind),
		}
	}
}

func validateExpressionGuard(transition *models.Transition, entity, context map[string]any) ValidationResult {
	outcome := &models.GuardOutcome{
		Type:       models.GuardKindExpression,
		Expression: transition.Guard.Expression,
	}

	passed, err := expr.Evaluate(transition.Guard.Expression, entity, context)
	if err != nil {
		outcome.Error = err.Error()

		return ValidationResult{
			Valid:       false,
			Reason:      fmt.Sprintf("guard evaluation error: %v", err),
			GuardResult: outcome,
		}
	}

	outcome.Passed = passed
	if passed {
		return ValidationResult{Valid: true, GuardResult: outcome}
	}

	outcome.Reason = "expression evaluated to false"

	return ValidationResult{
		Valid:       false,
		Reason:      "guard condition not met",
		GuardResult: outcome,
	}
}
