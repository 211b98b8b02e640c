package mocks

import (
	"context"

	"github.com/calyptra/stateflow/pkg/ai"
	"github.com/stretchr/testify/mock"
)

// MockGuardEvaluator is a mock implementation of ai.GuardEvaluator interface.
type MockGuardEvaluator struct {
	mock.Mock
}

func (m *MockGuardEvaluator) EvaluateGuard(
	ctx context.Context,
	entity map[string]any,
	instance ai.InstanceView,
	transition ai.TransitionView,
	toState string,
) (ai.GuardDecision, error) {
	args := m.Called(ctx, entity, instance, transition, toState)

	return args.Get(0).(ai.GuardDecision), args.Error(1)
}
