package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"

	"github.com/zigzalgo/pipeworks/pkg/cmd"
	"github.com/zigzalgo/pipeworks/pkg/log"
	"github.com/zigzalgo/pipeworks/pkg/otelhelper"
	"github.com/zigzalgo/pipeworks/pkg/registry"
	"github.com/zigzalgo/pipeworks/pkg/services"
)

func main() {
	command := &cli.Command{
		Name:                  "pipeworks-engine",
		EnableShellCompletion: true,
		Usage:                 "Start the engine that executes pipeline runs",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "engine-id",
				Aliases: []string{"id"},
				Usage:   "Custom engine ID (auto-generated if not provided)",
				Value:   "",
				Sources: cli.EnvVars("ENGINE_ID"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "channel-provider",
				Usage:   "Client channel transport (kafka, memory)",
				Value:   "kafka",
				Sources: cli.EnvVars("CHANNEL_PROVIDER"),
			},
			&cli.DurationFlag{
				Name:    "reap-after",
				Usage:   "Evict non-terminal invocations idle longer than this (0 disables the reaper)",
				Value:   0,
				Sources: cli.EnvVars("REAP_AFTER"),
			},
			&cli.StringFlag{
				Name:    "reaper-schedule",
				Usage:   "Cron schedule for reaper sweeps",
				Value:   services.DefaultReaperSchedule,
				Sources: cli.EnvVars("REAPER_SCHEDULE"),
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

			engineID := command.String("engine-id")
			if engineID == "" {
				engineID = "engine-" + uuid.New().String()[:8]
			}

			logger := log.WithModule("pipeworks-engine").With("engineId", engineID)
			logger.InfoContext(ctx, "Initializing Pipeworks Engine")

			tracerProvider, err := otelhelper.Setup(ctx, "pipeworks-engine")
			if err != nil {
				logger.WarnContext(ctx, "Tracing disabled", "error", err)
			}

			persistence, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			if err != nil {
				return err
			}

			defer func() {
				if err := persistence.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			transport, err := cmd.NewTransport(command.String("channel-provider"), logger)
			if err != nil {
				return err
			}

			defer func() {
				if err := transport.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close transport", "error", err)
				}
			}()

			nodeRegistry := cmd.NewRegistry(logger)
			connections := registry.NewConnectionRegistry(logger)
			runner := services.NewRunner(persistence, connections, nodeRegistry, logger)

			if reapAfter := command.Duration("reap-after"); reapAfter > 0 {
				reaper := services.NewReaper(persistence, reapAfter, logger)
				if err := reaper.Start(ctx, command.String("reaper-schedule")); err != nil {
					return err
				}

				defer reaper.Stop()
			}

			runCtx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			engine := NewEngine(transport, runner, logger)

			err = engine.Start(runCtx)

			logger.Info("Shutting down, waiting for runs to settle")
			connections.CloseAll()
			runner.Wait()

			if tracerProvider != nil {
				shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancelShutdown()

				if terr := tracerProvider.Shutdown(shutdownCtx); terr != nil {
					logger.Error("Failed to shut down tracer", "error", terr)
				}
			}

			return err
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}
