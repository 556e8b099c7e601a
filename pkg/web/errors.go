package web

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"

	"github.com/maqel/zapflow/pkg/admission"
	"github.com/maqel/zapflow/pkg/graph"
	"github.com/maqel/zapflow/pkg/models"
	"github.com/maqel/zapflow/pkg/persistence"
	"github.com/maqel/zapflow/pkg/services"
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

func conflict(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(409).
		WithInstance(c.Path()).
		WithType("conflict").
		WithDetail(detail)

	return c.Status(fiber.StatusConflict).JSON(problem)
}

func internalError(c fiber.Ctx, err error) error {
	problem := problems.NewStatusProblem(500).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(problem)
}

// handleServiceError maps service and graph rule errors onto problem
// responses. Graph mutation rejections are client errors, never 500s.
func handleServiceError(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrFlowNotFound),
		persistence.IsFlowNotFound(err),
		errors.Is(err, admission.ErrFlowNotFound):
		return notFound(c, "flow not found")

	case graph.IsNodeNotFound(err), errors.Is(err, admission.ErrUnknownNode):
		return notFound(c, "node not found")

	case errors.Is(err, graph.ErrEdgeNotFound):
		return notFound(c, "edge not found")

	case errors.Is(err, graph.ErrDanglingReference):
		problem := problems.NewStatusProblem(404).
			WithInstance(c.Path()).
			WithType("dangling_reference").
			WithDetail(err.Error())

		return c.Status(fiber.StatusNotFound).JSON(problem)

	case graph.IsDuplicateEdge(err),
		errors.Is(err, graph.ErrDuplicateTrigger),
		errors.Is(err, admission.ErrNotActive):
		return conflict(c, err.Error())

	case errors.Is(err, models.ErrInvalidNodeConfig),
		errors.Is(err, graph.ErrInvalidEdge),
		services.IsValidationError(err):
		return badRequest(c, err.Error())

	case services.IsConflictError(err):
		return conflict(c, err.Error())

	default:
		return internalError(c, err)
	}
}
