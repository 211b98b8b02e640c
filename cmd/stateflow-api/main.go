package main

import (
	"context"
	"os"
	"time"

	"github.com/calyptra/stateflow/pkg/cmd"
	"github.com/calyptra/stateflow/pkg/log"
	cli "github.com/urfave/cli/v3"
)

const defaultPort = 9091

func main() {
	logger := log.WithModule("api")

	command := &cli.Command{
		Name:                  "stateflow-api",
		Usage:                 "Manage workflow definitions and drive instance transitions",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence (file://<path> or redis://...)",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus provider (kafka, gochannel)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS"),
			},
			&cli.StringFlag{
				Name:    "openai-api-key",
				Usage:   "OpenAI API key for AI-delegated guards (empty disables them)",
				Sources: cli.EnvVars("OPENAI_API_KEY"),
			},
			&cli.StringFlag{
				Name:    "openai-model",
				Usage:   "Default model for AI-delegated guards",
				Value:   "gpt-4o-mini",
				Sources: cli.EnvVars("OPENAI_MODEL"),
			},
			&cli.DurationFlag{
				Name:    "ai-guard-timeout",
				Usage:   "Upper bound for a single AI guard evaluation",
				Value:   30 * time.Second,
				Sources: cli.EnvVars("AI_GUARD_TIMEOUT"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger.InfoContext(ctx, "Initializing Stateflow API")

			persistence := cmd.NewPersistence(command.String("database-url"))

			defer func() {
				if err := persistence.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			eventBus := cmd.NewEventBus(command.String("event-bus"), logger)

			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			api := NewAPI(logger, persistence, eventBus, APIConfig{
				OpenAIAPIKey:   command.String("openai-api-key"),
				OpenAIModel:    command.String("openai-model"),
				AIGuardTimeout: command.Duration("ai-guard-timeout"),
			})

			if err := api.Start(ctx, command.Int("port")); err != nil {
				logger.ErrorContext(ctx, "Failed to start API server", "error", err)

				return err
			}

			return nil
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}
