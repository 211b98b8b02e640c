package web

import (
	"errors"

	"github.com/calyptra/stateflow/pkg/persistence"
	"github.com/calyptra/stateflow/pkg/services"
	"github.com/calyptra/stateflow/pkg/workflow"
	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"
)

func badRequest(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(400).
		WithInstance(c.Path()).
		WithType("validation_error").
		WithDetail(detail)

	return c.Status(fiber.StatusBadRequest).JSON(problem)
}

func notFound(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(404).
		WithInstance(c.Path()).
		WithType("not_found").
		WithDetail(detail)

	return c.Status(fiber.StatusNotFound).JSON(problem)
}

func conflict(c fiber.Ctx, problemType, detail string) error {
	problem := problems.NewStatusProblem(409).
		WithInstance(c.Path()).
		WithType(problemType).
		WithDetail(detail)

	return c.Status(fiber.StatusConflict).JSON(problem)
}

func unprocessable(c fiber.Ctx, problemType, detail string) error {
	problem := problems.NewStatusProblem(422).
		WithInstance(c.Path()).
		WithType(problemType).
		WithDetail(detail)

	return c.Status(fiber.StatusUnprocessableEntity).JSON(problem)
}

func internalError(c fiber.Ctx, err error) error {
	problem := problems.NewStatusProblem(500).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(problem)
}

// handleServiceError provides typed error handling for definition service
// errors.
func handleServiceError(c fiber.Ctx, err error) error {
	switch {
	case services.IsValidationError(err):
		return badRequest(c, err.Error())
	case services.IsConflictError(err):
		return conflict(c, "conflict", err.Error())
	case persistence.IsDefinitionNotFound(err):
		return notFound(c, "workflow definition not found")
	default:
		return internalError(c, err)
	}
}

// handleEngineError maps transition engine errors onto problem responses.
func handleEngineError(c fiber.Ctx, err error) error {
	var rejection *workflow.GuardRejectedError

	switch {
	case errors.As(err, &rejection):
		return unprocessable(c, "guard_rejected", rejection.Error())
	case errors.Is(err, workflow.ErrTransitionNotFound):
		return unprocessable(c, "transition_not_found", err.Error())
	case errors.Is(err, workflow.ErrInstanceTerminal):
		return conflict(c, "instance_terminal", err.Error())
	case errors.Is(err, workflow.ErrConcurrentTransition):
		return conflict(c, "concurrent_transition", err.Error())
	case errors.Is(err, workflow.ErrDefinitionNotActive):
		return conflict(c, "definition_not_active", err.Error())
	case persistence.IsInstanceNotFound(err):
		return notFound(c, "workflow instance not found")
	case persistence.IsDefinitionNotFound(err):
		return notFound(c, "workflow definition not found")
	default:
		return internalError(c, err)
	}
}
