// Package web provides HTTP handlers and REST API endpoints for the workflow
// transition engine. Every route is tenant-scoped through the
// X-Organization-ID header.
package web

import (
	"net/http"
	"time"

	"github.com/calyptra/stateflow/pkg/persistence"
	"github.com/calyptra/stateflow/pkg/services"
	"github.com/calyptra/stateflow/pkg/workflow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

const organizationHeader = "X-Organization-ID"

type APIHandlers struct {
	definitionService *services.Definition
	engine            *workflow.Engine
	persistence       persistence.Persistence
	validator         *validator.Validate
}

func NewAPIHandlers(
	definitionService *services.Definition,
	engine *workflow.Engine,
	persistence persistence.Persistence,
	validator *validator.Validate,
) *APIHandlers {
	return &APIHandlers{
		definitionService: definitionService,
		engine:            engine,
		persistence:       persistence,
		validator:         validator,
	}
}

// Register mounts all API routes on the app.
func (h *APIHandlers) Register(app *fiber.App) {
	definitions := app.Group("/definitions")
	definitions.Get("/", h.ListDefinitions)
	definitions.Post("/", h.CreateDefinition)
	definitions.Get("/:id", h.GetDefinition)
	definitions.Put("/:id", h.UpdateDefinition)
	definitions.Delete("/:id", h.DeleteDefinition)
	definitions.Post("/:id/activate", h.ActivateDefinition)
	definitions.Get("/:id/instances", h.ListInstances)

	instances := app.Group("/instances")
	instances.Post("/", h.StartInstance)
	instances.Get("/:id", h.GetInstance)
	instances.Post("/:id/transition", h.Transition)
	instances.Post("/:id/cancel", h.CancelInstance)
	instances.Post("/:id/available-transitions", h.AvailableTransitions)
	instances.Get("/:id/history", h.History)

	app.Get("/health", h.HealthCheck)
}

func organizationID(c fiber.Ctx) string {
	return c.Get(organizationHeader)
}

func (h *APIHandlers) ListDefinitions(c fiber.Ctx) error {
	orgID := organizationID(c)
	if orgID == "" {
		return badRequest(c, "X-Organization-ID header is required")
	}

	definitions, err := h.definitionService.List(c.Context(), orgID)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"definitions": definitions,
		"total_count": len(definitions),
	})
}

func (h *APIHandlers) CreateDefinition(c fiber.Ctx) error {
	orgID := organizationID(c)
	if orgID == "" {
		return badRequest(c, "X-Organization-ID header is required")
	}

	var document map[string]any
	if err := c.Bind().JSON(&document); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	created, err := h.definitionService.Create(c.Context(), orgID, document)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) GetDefinition(c fiber.Ctx) error {
	orgID := organizationID(c)
	if orgID == "" {
		return badRequest(c, "X-Organization-ID header is required")
	}

	definition, err := h.definitionService.Get(c.Context(), orgID, c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(definition)
}

func (h *APIHandlers) UpdateDefinition(c fiber.Ctx) error {
	orgID := organizationID(c)
	if orgID == "" {
		return badRequest(c, "X-Organization-ID header is required")
	}

	var document map[string]any
	if err := c.Bind().JSON(&document); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	updated, err := h.definitionService.Update(c.Context(), orgID, c.Params("id"), document)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(updated)
}

func (h *APIHandlers) DeleteDefinition(c fiber.Ctx) error {
	orgID := organizationID(c)
	if orgID == "" {
		return badRequest(c, "X-Organization-ID header is required")
	}

	if err := h.definitionService.Delete(c.Context(), orgID, c.Params("id")); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) ActivateDefinition(c fiber.Ctx) error {
	orgID := organizationID(c)
	if orgID == "" {
		return badRequest(c, "X-Organization-ID header is required")
	}

	activated, err := h.definitionService.Activate(c.Context(), orgID, c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(activated)
}

func (h *APIHandlers) ListInstances(c fiber.Ctx) error {
	orgID := organizationID(c)
	if orgID == "" {
		return badRequest(c, "X-Organization-ID header is required")
	}

	instances, err := h.persistence.InstanceRepository().ListByDefinition(c.Context(), orgID, c.Params("id"))
	if err != nil {
		return handleEngineError(c, err)
	}

	return c.JSON(instances)
}

func (h *APIHandlers) StartInstance(c fiber.Ctx) error {
	orgID := organizationID(c)
	if orgID == "" {
		return badRequest(c, "X-Organization-ID header is required")
	}

	var req StartInstanceRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	instance, err := h.engine.Start(c.Context(), workflow.StartRequest{
		OrganizationID: orgID,
		DefinitionID:   req.DefinitionID,
		EntityID:       req.EntityID,
		Context:        req.Context,
	})
	if err != nil {
		return handleEngineError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(instance)
}

func (h *APIHandlers) GetInstance(c fiber.Ctx) error {
	orgID := organizationID(c)
	if orgID == "" {
		return badRequest(c, "X-Organization-ID header is required")
	}

	instance, err := h.persistence.InstanceRepository().GetByID(c.Context(), orgID, c.Params("id"))
	if err != nil {
		return handleEngineError(c, err)
	}

	return c.JSON(instance)
}

func (h *APIHandlers) Transition(c fiber.Ctx) error {
	orgID := organizationID(c)
	if orgID == "" {
		return badRequest(c, "X-Organization-ID header is required")
	}

	var req TransitionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	result, err := h.engine.Transition(c.Context(), workflow.TransitionRequest{
		OrganizationID: orgID,
		InstanceID:     c.Params("id"),
		ToState:        req.ToState,
		Actor:          req.Actor,
		Entity:         req.Entity,
		ContextUpdates: req.ContextUpdates,
	})
	if err != nil {
		return handleEngineError(c, err)
	}

	response := fiber.Map{
		"instance": result.Instance,
		"entry":    result.Entry,
	}
	if result.WriteBackError != "" {
		response["write_back_error"] = result.WriteBackError
	}

	return c.JSON(response)
}

func (h *APIHandlers) CancelInstance(c fiber.Ctx) error {
	orgID := organizationID(c)
	if orgID == "" {
		return badRequest(c, "X-Organization-ID header is required")
	}

	var req CancelRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	cancelled, err := h.engine.Cancel(c.Context(), orgID, c.Params("id"), req.Actor)
	if err != nil {
		return handleEngineError(c, err)
	}

	return c.JSON(cancelled)
}

func (h *APIHandlers) AvailableTransitions(c fiber.Ctx) error {
	orgID := organizationID(c)
	if orgID == "" {
		return badRequest(c, "X-Organization-ID header is required")
	}

	var req AvailableTransitionsRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	available, err := h.engine.AvailableTransitions(c.Context(), orgID, c.Params("id"), req.Entity)
	if err != nil {
		return handleEngineError(c, err)
	}

	return c.JSON(fiber.Map{"available_transitions": available})
}

func (h *APIHandlers) History(c fiber.Ctx) error {
	orgID := organizationID(c)
	if orgID == "" {
		return badRequest(c, "X-Organization-ID header is required")
	}

	history, err := h.engine.History(c.Context(), orgID, c.Params("id"))
	if err != nil {
		return handleEngineError(c, err)
	}

	return c.JSON(fiber.Map{"history": history})
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	status := "healthy"
	message := "Stateflow API is healthy"
	httpStatus := http.StatusOK

	repositoryCheck := "ok"
	if err := h.persistence.HealthCheck(c.Context()); err != nil {
		status = "unhealthy"
		message = "Stateflow API is unhealthy"
		httpStatus = http.StatusInternalServerError
		repositoryCheck = err.Error()
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}
