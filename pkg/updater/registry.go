// Package updater dispatches workflow state write-backs to the business
// module owning each entity type. The registry is pure dispatch: it holds no
// business logic, so new entity types plug into workflows without the engine
// knowing their shape.
package updater

import (
	"context"
	"log/slog"
	"sync"
)

// EntityStateUpdater projects a workflow's new state onto the tracked
// business record.
type EntityStateUpdater interface {
	Update(ctx context.Context, entityID string, updates map[string]any, organizationID string) (map[string]any, error)
}

// Registry maps entity types to their active updater. One updater per type:
// registering a second updater for the same type replaces the prior one.
type Registry struct {
	mu       sync.RWMutex
	logger   *slog.Logger
	updaters map[string]EntityStateUpdater
}

func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}

	return &Registry{
		logger:   logger,
		updaters: make(map[string]EntityStateUpdater),
	}
}

// Register installs the updater for an entity type, replacing any prior one.
// Expected at startup wiring time, not under load.
func (r *Registry) Register(entityType string, updater EntityStateUpdater) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, replaced := r.updaters[entityType]; replaced {
		r.logger.Warn("Replacing entity state updater", "entity_type", entityType)
	}

	r.updaters[entityType] = updater
}

func (r *Registry) Get(entityType string) (EntityStateUpdater, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	updater, ok := r.updaters[entityType]

	return updater, ok
}

func (r *Registry) Has(entityType string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.updaters[entityType]

	return ok
}

// Types returns the registered entity types.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.updaters))
	for entityType := range r.updaters {
		types = append(types, entityType)
	}

	return types
}
