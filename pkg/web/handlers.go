// Package web provides HTTP handlers and REST API endpoints for pipeline management.
package web

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/zigzalgo/pipeworks/pkg/registry"
	"github.com/zigzalgo/pipeworks/pkg/services"
)

type APIHandlers struct {
	pipelineService *services.Pipelines
	validator       *validator.Validate
	registry        *registry.Registry
}

func NewAPIHandlers(
	pipelineService *services.Pipelines,
	validator *validator.Validate,
	registry *registry.Registry,
) *APIHandlers {
	return &APIHandlers{
		pipelineService: pipelineService,
		validator:       validator,
		registry:        registry,
	}
}

// Register wires all routes onto the app.
func (h *APIHandlers) Register(app *fiber.App) {
	app.Get("/health", h.HealthCheck)
	app.Get("/pipelines", h.GetPipelines)
	app.Post("/pipelines", h.CreatePipeline)
	app.Get("/pipelines/:id", h.GetPipeline)
	app.Get("/invocations/:id", h.GetInvocation)
	app.Get("/node-types", h.GetNodeTypes)
}

func (h *APIHandlers) GetPipelines(c fiber.Ctx) error {
	pipelines, err := h.pipelineService.List(c.Context())
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{
		"pipelines":   pipelines,
		"total_count": len(pipelines),
	})
}

func (h *APIHandlers) GetPipeline(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Pipeline ID is required")
	}

	pipeline, err := h.pipelineService.FetchByID(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(pipeline)
}

func (h *APIHandlers) GetInvocation(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Invocation ID is required")
	}

	invocation, err := h.pipelineService.FetchInvocation(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(TransformInvocationResponse(invocation))
}

func (h *APIHandlers) CreatePipeline(c fiber.Ctx) error {
	var req CreatePipelineRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	created, err := h.pipelineService.Create(c.Context(), req.ToPipeline())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) GetNodeTypes(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"node_types": h.registry.NodeTypes(),
	})
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	registryCheck, regOk := h.registry.HealthCheck()
	repositoryCheck, repOk := h.pipelineService.HealthCheck(c.Context())

	status := "unhealthy"
	message := "Pipeworks API is unhealthy"
	httpStatus := http.StatusInternalServerError

	if regOk && repOk {
		status = "healthy"
		message = "Pipeworks API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"registry":   registryCheck,
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}
