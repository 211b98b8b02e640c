package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/calyptra/stateflow/pkg/models"
)

// ActionExecutor runs a transition side effect after the state change has
// been committed. Failures are recorded in history but never roll the
// transition back.
type ActionExecutor interface {
	Execute(ctx context.Context, config map[string]any, instance *models.WorkflowInstance, logger *slog.Logger) error
}

// ActionRegistry maps action type names to executors.
type ActionRegistry struct {
	mu        sync.RWMutex
	executors map[string]ActionExecutor
}

func NewActionRegistry() *ActionRegistry {
	registry := &ActionRegistry{executors: make(map[string]ActionExecutor)}
	registry.Register("log", &LogAction{})
	registry.Register("http_request", NewHTTPRequestAction())

	return registry
}

func (r *ActionRegistry) Register(actionType string, executor ActionExecutor) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.executors[actionType] = executor
}

func (r *ActionRegistry) Get(actionType string) (ActionExecutor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	executor, ok := r.executors[actionType]

	return executor, ok
}

// LogAction writes a structured log line. Config key "message" overrides the
// default text.
type LogAction struct{}

func (a *LogAction) Execute(_ context.Context, config map[string]any, instance *models.WorkflowInstance, logger *slog.Logger) error {
	message := "transition action"
	if m, ok := config["message"].(string); ok && m != "" {
		message = m
	}

	logger.Info(message,
		"instance_id", instance.ID,
		"entity_type", instance.EntityType,
		"entity_id", instance.EntityID,
		"current_state", instance.CurrentState)

	return nil
}

func runAction(ctx context.Context, registry *ActionRegistry, spec *models.ActionSpec, instance *models.WorkflowInstance, logger *slog.Logger) *models.ActionOutcome {
	if spec == nil {
		return nil
	}

	outcome := &models.ActionOutcome{Action: spec.Type}

	executor, ok := registry.Get(spec.Type)
	if !ok {
		outcome.Error = fmt.Sprintf("unknown action type %q", spec.Type)

		return outcome
	}

	if err := executor.Execute(ctx, spec.Config, instance, logger); err != nil {
		outcome.Error = err.Error()

		return outcome
	}

	outcome.Executed = true

	return outcome
}
