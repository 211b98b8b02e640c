// Package workflow implements the transition engine: it validates requested
// state changes against a workflow definition, resolves expression and AI
// guards, applies the state change with per-instance concurrency control, and
// records every attempt in the instance history.
package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/calyptra/stateflow/pkg/ai"
	"github.com/calyptra/stateflow/pkg/eventbus"
	"github.com/calyptra/stateflow/pkg/events"
	"github.com/calyptra/stateflow/pkg/models"
	"github.com/calyptra/stateflow/pkg/otelhelper"
	"github.com/calyptra/stateflow/pkg/persistence"
	"github.com/calyptra/stateflow/pkg/updater"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const defaultAIGuardTimeout = 30 * time.Second

// Config wires the engine's collaborators. Guards and Events are optional:
// without Guards every AI-gated transition is rejected, without Events no
// lifecycle events are published.
type Config struct {
	Definitions    persistence.DefinitionRepository
	Instances      persistence.InstanceRepository
	Updaters       *updater.Registry
	Actions        *ActionRegistry
	Guards         ai.GuardEvaluator
	Events         eventbus.EventPublisher
	Tracer         trace.Tracer
	Logger         *slog.Logger
	AIGuardTimeout time.Duration
}

// Engine is the workflow transition engine. All methods are safe for
// concurrent use; transitions on the same instance are serialized by
// rejection rather than queueing.
type Engine struct {
	definitions    persistence.DefinitionRepository
	instances      persistence.InstanceRepository
	updaters       *updater.Registry
	actions        *ActionRegistry
	guards         ai.GuardEvaluator
	events         eventbus.EventPublisher
	tracer         trace.Tracer
	logger         *slog.Logger
	locks          *instanceLocks
	aiGuardTimeout time.Duration
}

func NewEngine(cfg Config) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	tracer := cfg.Tracer
	if tracer == nil {
		tracer = otel.Tracer("github.com/calyptra/stateflow/pkg/workflow")
	}

	actions := cfg.Actions
	if actions == nil {
		actions = NewActionRegistry()
	}

	timeout := cfg.AIGuardTimeout
	if timeout <= 0 {
		timeout = defaultAIGuardTimeout
	}

	return &Engine{
		definitions:    cfg.Definitions,
		instances:      cfg.Instances,
		updaters:       cfg.Updaters,
		actions:        actions,
		guards:         cfg.Guards,
		events:         cfg.Events,
		tracer:         tracer,
		logger:         logger.With("module", "engine"),
		locks:          newInstanceLocks(),
		aiGuardTimeout: timeout,
	}
}

// StartRequest describes a new workflow instance.
type StartRequest struct {
	OrganizationID string
	DefinitionID   string
	EntityID       string
	Context        map[string]any
}

// Start creates an instance of an active definition positioned at its
// initial state.
func (e *Engine) Start(ctx context.Context, req StartRequest) (*models.WorkflowInstance, error) {
	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "workflow.start",
		attribute.String(otelhelper.OrganizationIDKey, req.OrganizationID),
		attribute.String(otelhelper.DefinitionIDKey, req.DefinitionID))
	defer span.End()

	def, err := e.definitions.GetByID(ctx, req.OrganizationID, req.DefinitionID)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	if def.Status != models.DefinitionStatusActive {
		otelhelper.SetError(span, ErrDefinitionNotActive)

		return nil, fmt.Errorf("definition %s: %w", def.ID, ErrDefinitionNotActive)
	}

	initial, ok := def.InitialState()
	if !ok {
		err := fmt.Errorf("definition %s: %w", def.ID, models.ErrInitialStateCount)
		otelhelper.SetError(span, err)

		return nil, err
	}

	now := time.Now().UTC()
	instance := &models.WorkflowInstance{
		ID:                   uuid.New().String(),
		OrganizationID:       req.OrganizationID,
		WorkflowDefinitionID: def.ID,
		EntityType:           def.EntityType,
		EntityID:             req.EntityID,
		CurrentState:         initial.Name,
		Status:               models.InstanceStatusActive,
		Context:              req.Context,
		History:              []models.HistoryEntry{},
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	if instance.Context == nil {
		instance.Context = make(map[string]any)
	}

	if err := e.instances.Save(ctx, instance); err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	e.publish(ctx, instance.ID, events.WorkflowInstanceStarted{
		BaseEvent:    events.NewBaseEvent(events.WorkflowInstanceStartedEvent, instance.OrganizationID, instance.ID, def.ID),
		EntityType:   instance.EntityType,
		EntityID:     instance.EntityID,
		InitialState: instance.CurrentState,
		Context:      instance.Context,
	})

	e.logger.InfoContext(ctx, "workflow instance started",
		"instance_id", instance.ID,
		"definition_id", def.ID,
		"entity_id", instance.EntityID,
		"initial_state", instance.CurrentState)

	return instance, nil
}

// TransitionRequest describes a requested state change. Entity is the
// caller's snapshot of the business record, used for guard evaluation and
// never persisted. ContextUpdates are merged into the instance context only
// when the transition executes.
type TransitionRequest struct {
	OrganizationID string
	InstanceID     string
	ToState        string
	Actor          string
	Entity         map[string]any
	ContextUpdates map[string]any
}

// TransitionResult reports an executed transition. WriteBackError is set
// when the entity-state write-back failed; the transition itself stands.
type TransitionResult struct {
	Instance       *models.WorkflowInstance
	Entry          models.HistoryEntry
	WriteBackError string
}

// Transition attempts to move an instance to a new state. Denied guards are
// recorded in the history before the error is returned; unknown transitions
// leave no trace.
func (e *Engine) Transition(ctx context.Context, req TransitionRequest) (*TransitionResult, error) {
	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "workflow.transition",
		attribute.String(otelhelper.OrganizationIDKey, req.OrganizationID),
		attribute.String(otelhelper.InstanceIDKey, req.InstanceID),
		attribute.String(otelhelper.ToStateKey, req.ToState))
	defer span.End()

	if !e.locks.tryAcquire(req.InstanceID) {
		otelhelper.SetError(span, ErrConcurrentTransition)

		return nil, fmt.Errorf("instance %s: %w", req.InstanceID, ErrConcurrentTransition)
	}
	defer e.locks.release(req.InstanceID)

	instance, err := e.instances.GetByID(ctx, req.OrganizationID, req.InstanceID)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	if instance.Terminal() {
		otelhelper.SetError(span, ErrInstanceTerminal)

		return nil, fmt.Errorf("instance %s (%s): %w", instance.ID, instance.Status, ErrInstanceTerminal)
	}

	def, err := e.definitions.GetByID(ctx, req.OrganizationID, instance.WorkflowDefinitionID)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	span.SetAttributes(attribute.String(otelhelper.FromStateKey, instance.CurrentState))

	transition, ok := FindTransition(def, instance.CurrentState, req.ToState)
	if !ok {
		otelhelper.SetError(span, ErrTransitionNotFound)

		return nil, fmt.Errorf("%s -> %s: %w", instance.CurrentState, req.ToState, ErrTransitionNotFound)
	}

	result := ValidateTransition(transition, req.Entity, instance.Context)

	if result.AIRequired {
		result = e.resolveAIGuard(ctx, instance, transition, req.Entity)
	}

	if !result.Valid {
		return nil, e.recordRejection(ctx, instance, transition, req.Actor, result)
	}

	return e.commit(ctx, def, instance, transition, req, result)
}

func (e *Engine) resolveAIGuard(ctx context.Context, instance *models.WorkflowInstance, transition *models.Transition, entity map[string]any) ValidationResult {
	outcome := &models.GuardOutcome{Type: models.GuardKindAI}

	if e.guards == nil {
		outcome.Error = ErrAIGuardUnavailable.Error()

		return ValidationResult{
			Valid:       false,
			Reason:      ErrAIGuardUnavailable.Error(),
			GuardResult: outcome,
		}
	}

	guardCtx, cancel := context.WithTimeout(ctx, e.aiGuardTimeout)
	defer cancel()

	decision, err := e.guards.EvaluateGuard(guardCtx, entity,
		ai.InstanceView{CurrentState: instance.CurrentState, Context: instance.Context},
		ai.TransitionView{From: transition.From, To: transition.To, Guard: transition.Guard},
		transition.To)
	if err != nil {
		outcome.Error = err.Error()
		e.logger.WarnContext(ctx, "ai guard evaluation failed",
			"instance_id", instance.ID,
			"from", transition.From,
			"to", transition.To,
			"error", err)

		return ValidationResult{
			Valid:       false,
			Reason:      fmt.Sprintf("ai guard evaluation failed: %v", err),
			GuardResult: outcome,
		}
	}

	outcome.Passed = decision.Allowed
	outcome.Reason = decision.Reason
	outcome.Model = decision.Model

	if !decision.Allowed {
		return ValidationResult{
			Valid:       false,
			Reason:      decision.Reason,
			GuardResult: outcome,
		}
	}

	return ValidationResult{Valid: true, GuardResult: outcome}
}

// recordRejection appends a non-executed history entry and persists it. The
// failed attempt is part of the audit trail even though the state did not
// change.
func (e *Engine) recordRejection(ctx context.Context, instance *models.WorkflowInstance, transition *models.Transition, actor string, result ValidationResult) error {
	instance.AppendHistory(models.HistoryEntry{
		ID:          uuid.New().String(),
		FromState:   transition.From,
		ToState:     transition.To,
		TriggeredBy: actor,
		Timestamp:   time.Now().UTC(),
		Executed:    false,
		GuardResult: result.GuardResult,
	})

	if err := e.instances.Save(ctx, instance); err != nil {
		e.logger.ErrorContext(ctx, "failed to persist rejected transition",
			"instance_id", instance.ID, "error", err)
	}

	return &GuardRejectedError{
		From:   transition.From,
		To:     transition.To,
		Reason: result.Reason,
		Result: derefOutcome(result.GuardResult),
	}
}

func (e *Engine) commit(ctx context.Context, def *models.WorkflowDefinition, instance *models.WorkflowInstance, transition *models.Transition, req TransitionRequest, result ValidationResult) (*TransitionResult, error) {
	now := time.Now().UTC()
	fromState := instance.CurrentState

	instance.MergeContext(req.ContextUpdates)
	instance.CurrentState = transition.To
	instance.UpdatedAt = now

	target, _ := def.StateByName(transition.To)
	if target.Final {
		instance.Status = models.InstanceStatusCompleted
		instance.CompletedAt = &now
	}

	entry := models.HistoryEntry{
		ID:          uuid.New().String(),
		FromState:   fromState,
		ToState:     transition.To,
		TriggeredBy: req.Actor,
		Timestamp:   now,
		Executed:    true,
		GuardResult: result.GuardResult,
	}
	entry.ActionResult = runAction(ctx, e.actions, transition.Action, instance, e.logger)

	instance.AppendHistory(entry)

	if err := e.instances.Save(ctx, instance); err != nil {
		otelhelper.SetError(trace.SpanFromContext(ctx), err)

		return nil, err
	}

	out := &TransitionResult{Instance: instance, Entry: entry}
	out.WriteBackError = e.writeBack(ctx, instance)

	e.publish(ctx, instance.ID, events.WorkflowTransitioned{
		BaseEvent:   events.NewBaseEvent(events.WorkflowTransitionedEvent, instance.OrganizationID, instance.ID, def.ID),
		FromState:   fromState,
		ToState:     transition.To,
		TriggeredBy: req.Actor,
		GuardResult: result.GuardResult,
	})

	if instance.Status == models.InstanceStatusCompleted {
		e.publish(ctx, instance.ID, events.WorkflowInstanceCompleted{
			BaseEvent:  events.NewBaseEvent(events.WorkflowInstanceCompletedEvent, instance.OrganizationID, instance.ID, def.ID),
			FinalState: instance.CurrentState,
			EntityType: instance.EntityType,
			EntityID:   instance.EntityID,
			Duration:   now.Sub(instance.CreatedAt),
		})
	}

	e.logger.InfoContext(ctx, "workflow transitioned",
		"instance_id", instance.ID,
		"from", fromState,
		"to", transition.To,
		"actor", req.Actor,
		"completed", instance.Status == models.InstanceStatusCompleted)

	return out, nil
}

// writeBack pushes the new state into the owning entity record. A missing
// updater for the entity type is not an error: the workflow is then purely
// advisory for that type.
func (e *Engine) writeBack(ctx context.Context, instance *models.WorkflowInstance) string {
	if e.updaters == nil {
		return ""
	}

	entityUpdater, ok := e.updaters.Get(instance.EntityType)
	if !ok {
		return ""
	}

	_, err := entityUpdater.Update(ctx, instance.EntityID,
		map[string]any{"state": instance.CurrentState}, instance.OrganizationID)
	if err != nil {
		e.logger.WarnContext(ctx, "entity state write-back failed",
			"instance_id", instance.ID,
			"entity_type", instance.EntityType,
			"entity_id", instance.EntityID,
			"error", err)

		return err.Error()
	}

	return ""
}

// Cancel terminally abandons an active instance. Cancellation is an
// administrative act outside the definition graph: no transition fires and
// no history entry is written.
func (e *Engine) Cancel(ctx context.Context, organizationID, instanceID, actor string) (*models.WorkflowInstance, error) {
	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "workflow.cancel",
		attribute.String(otelhelper.OrganizationIDKey, organizationID),
		attribute.String(otelhelper.InstanceIDKey, instanceID))
	defer span.End()

	if !e.locks.tryAcquire(instanceID) {
		otelhelper.SetError(span, ErrConcurrentTransition)

		return nil, fmt.Errorf("instance %s: %w", instanceID, ErrConcurrentTransition)
	}
	defer e.locks.release(instanceID)

	instance, err := e.instances.GetByID(ctx, organizationID, instanceID)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	if instance.Terminal() {
		otelhelper.SetError(span, ErrInstanceTerminal)

		return nil, fmt.Errorf("instance %s (%s): %w", instance.ID, instance.Status, ErrInstanceTerminal)
	}

	now := time.Now().UTC()
	instance.Status = models.InstanceStatusCancelled
	instance.CancelledAt = &now
	instance.CancelledBy = actor
	instance.UpdatedAt = now

	if err := e.instances.Save(ctx, instance); err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	e.publish(ctx, instance.ID, events.WorkflowInstanceCancelled{
		BaseEvent:   events.NewBaseEvent(events.WorkflowInstanceCancelledEvent, instance.OrganizationID, instance.ID, instance.WorkflowDefinitionID),
		CancelledBy: actor,
		LastState:   instance.CurrentState,
	})

	e.logger.InfoContext(ctx, "workflow instance cancelled",
		"instance_id", instance.ID,
		"cancelled_by", actor,
		"last_state", instance.CurrentState)

	return instance, nil
}

// AvailableTransitions returns the target states reachable from the
// instance's current state right now. Expression guards are evaluated
// eagerly against the given entity snapshot; AI-gated edges are included
// without confirmation since their verdict is only known at transition time.
func (e *Engine) AvailableTransitions(ctx context.Context, organizationID, instanceID string, entity map[string]any) ([]string, error) {
	instance, err := e.instances.GetByID(ctx, organizationID, instanceID)
	if err != nil {
		return nil, err
	}

	if instance.Terminal() {
		return []string{}, nil
	}

	def, err := e.definitions.GetByID(ctx, organizationID, instance.WorkflowDefinitionID)
	if err != nil {
		return nil, err
	}

	available := []string{}

	for _, transition := range def.TransitionsFrom(instance.CurrentState) {
		result := ValidateTransition(&transition, entity, instance.Context)
		if result.Valid || result.AIRequired {
			available = append(available, transition.To)
		}
	}

	return available, nil
}

// History returns the instance's append-only transition log.
func (e *Engine) History(ctx context.Context, organizationID, instanceID string) ([]models.HistoryEntry, error) {
	instance, err := e.instances.GetByID(ctx, organizationID, instanceID)
	if err != nil {
		return nil, err
	}

	history := make([]models.HistoryEntry, len(instance.History))
	copy(history, instance.History)

	return history, nil
}

func (e *Engine) publish(ctx context.Context, key string, event eventbus.Event) {
	if e.events == nil {
		return
	}

	if err := e.events.Publish(ctx, key, event); err != nil {
		e.logger.WarnContext(ctx, "failed to publish event",
			"event_type", event.GetType(), "key", key, "error", err)
	}
}

func derefOutcome(outcome *models.GuardOutcome) models.GuardOutcome {
	if outcome == nil {
		return models.GuardOutcome{}
	}

	return *outcome
}
