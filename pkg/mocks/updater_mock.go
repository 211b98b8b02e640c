package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockEntityStateUpdater is a mock implementation of
// updater.EntityStateUpdater interface.
type MockEntityStateUpdater struct {
	mock.Mock
}

func (m *MockEntityStateUpdater) Update(ctx context.Context, entityID string, updates map[string]any, organizationID string) (map[string]any, error) {
	args := m.Called(ctx, entityID, updates, organizationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(map[string]any), args.Error(1)
}
