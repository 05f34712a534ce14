// Package main provides the Pipeworks API server.
package main

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"

	"github.com/zigzalgo/pipeworks/pkg/persistence"
	"github.com/zigzalgo/pipeworks/pkg/registry"
	"github.com/zigzalgo/pipeworks/pkg/services"
	"github.com/zigzalgo/pipeworks/pkg/web"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	registry    *registry.Registry
	validate    *validator.Validate
	app         *fiber.App
}

func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	registry *registry.Registry,
) *API {
	return &API{
		logger:      logger,
		persistence: persistence,
		registry:    registry,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	pipelineService := services.NewPipelines(a.persistence, a.registry)
	handlers := web.NewAPIHandlers(pipelineService, a.validate, a.registry)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Pipeworks API")
	})

	handlers.Register(app)

	return app
}

func (a *API) Start(port int) error {
	a.app = a.App()

	return a.app.Listen(":" + strconv.Itoa(port))
}

func (a *API) Shutdown(ctx context.Context) error {
	if a.app == nil {
		return nil
	}

	return a.app.ShutdownWithContext(ctx)
}
