package web

import (
	"errors"

	"github.com/dukex/flowstudio/pkg/documents"
	"github.com/dukex/flowstudio/pkg/persistence"
	"github.com/dukex/flowstudio/pkg/services"
	"github.com/dukex/flowstudio/pkg/store"
	"github.com/dukex/flowstudio/pkg/validation"
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

func conflict(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(409).
		WithInstance(c.Path()).
		WithType("conflict").
		WithDetail(detail)

	return c.Status(fiber.StatusConflict).JSON(problem)
}

func unavailable(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(503).
		WithInstance(c.Path()).
		WithType("unavailable").
		WithDetail(detail)

	return c.Status(fiber.StatusServiceUnavailable).JSON(problem)
}

func internalError(c fiber.Ctx, err error) error {
	problem := problems.NewStatusProblem(500).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(problem)
}

// handleServiceError maps errors of the document, validation and store layers to problems.
func handleServiceError(c fiber.Ctx, err error) error {
	switch {
	case services.IsValidationError(err),
		errors.Is(err, validation.ErrInvalidReference):
		return badRequest(c, err.Error())

	case services.IsNotFoundError(err),
		persistence.IsDocumentNotFound(err),
		errors.Is(err, validation.ErrUnknownDocument),
		errors.Is(err, validation.ErrUnknownField),
		errors.Is(err, store.ErrUnknownDocument):
		return notFound(c, err.Error())

	case errors.Is(err, store.ErrAttemptInProgress),
		errors.Is(err, store.ErrNotAwaitingConfirmation):
		return conflict(c, err.Error())

	case errors.Is(err, documents.ErrRegistryLoading):
		return unavailable(c, err.Error())

	default:
		return internalError(c, err)
	}
}
