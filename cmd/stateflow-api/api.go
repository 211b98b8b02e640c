// Package main provides the Stateflow API server implementation.
package main

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/calyptra/stateflow/pkg/ai"
	"github.com/calyptra/stateflow/pkg/eventbus"
	"github.com/calyptra/stateflow/pkg/otelhelper"
	"github.com/calyptra/stateflow/pkg/persistence"
	"github.com/calyptra/stateflow/pkg/services"
	"github.com/calyptra/stateflow/pkg/updater"
	"github.com/calyptra/stateflow/pkg/web"
	"github.com/calyptra/stateflow/pkg/workflow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
)

type APIConfig struct {
	OpenAIAPIKey   string
	OpenAIModel    string
	AIGuardTimeout time.Duration
}

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	eventBus    eventbus.EventBus
	updaters    *updater.Registry
	validate    *validator.Validate
	config      APIConfig
}

func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	eventBus eventbus.EventBus,
	config APIConfig,
) *API {
	return &API{
		logger:      logger,
		persistence: persistence,
		eventBus:    eventBus,
		updaters:    updater.NewRegistry(logger),
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		config:      config,
	}
}

// Updaters exposes the entity write-back registry so embedding applications
// can register their business modules before Start.
func (a *API) Updaters() *updater.Registry {
	return a.updaters
}

func (a *API) App(ctx context.Context) *fiber.App {
	var guards ai.GuardEvaluator
	if a.config.OpenAIAPIKey != "" {
		guards = ai.NewOpenAIEvaluator(a.config.OpenAIAPIKey, a.config.OpenAIModel, 0, a.logger)
	} else {
		a.logger.WarnContext(ctx, "No OpenAI API key configured, AI-delegated guards will reject")
	}

	tracer, err := otelhelper.NewTracer(ctx, "stateflow-api")
	if err != nil {
		a.logger.WarnContext(ctx, "Failed to initialize tracer", "error", err)
	}

	engine := workflow.NewEngine(workflow.Config{
		Definitions:    a.persistence.DefinitionRepository(),
		Instances:      a.persistence.InstanceRepository(),
		Updaters:       a.updaters,
		Guards:         guards,
		Events:         a.eventBus,
		Tracer:         tracer,
		Logger:         a.logger,
		AIGuardTimeout: a.config.AIGuardTimeout,
	})

	definitionService := services.NewDefinition(
		a.persistence.DefinitionRepository(),
		a.persistence.InstanceRepository(),
	)

	handlers := web.NewAPIHandlers(definitionService, engine, a.persistence, a.validate)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Stateflow API")
	})

	handlers.Register(app)

	return app
}

func (a *API) Start(ctx context.Context, port int) error {
	app := a.App(ctx)

	return app.Listen(":" + strconv.Itoa(port))
}
