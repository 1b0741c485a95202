package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/acolhe/clinicd_backend/internal/domain"
)

var validate = validator.New()

func ok(c fiber.Ctx, data any) error {
	return c.JSON(fiber.Map{"data": data})
}

func created(c fiber.Ctx, data any) error {
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": data})
}

func badRequest(c fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
}

func notFound(c fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": msg})
}

func conflict(c fiber.Ctx, body fiber.Map) error {
	return c.Status(fiber.StatusConflict).JSON(body)
}

func internalError(c fiber.Ctx) error {
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
}

// mapDomainError translates domain error kinds into HTTP statuses. Structured
// errors keep their context in the body so callers can decide a next step.
func mapDomainError(c fiber.Ctx, err error) error {
	var (
		permErr     *domain.PermissionDeniedError
		stateErr    *domain.InvalidStateError
		bookingErr  *domain.DoubleBookingError
		conflictErr *domain.ConflictError
	)

	switch {
	case errors.Is(err, domain.ErrNotFound):
		return notFound(c, "entity not found")

	case errors.As(err, &permErr):
		body := fiber.Map{"error": permErr.Reason}
		if permErr.RequiredActor != "" {
			body["requiredActor"] = permErr.RequiredActor
		}
		return c.Status(fiber.StatusForbidden).JSON(body)
	case errors.Is(err, domain.ErrPermissionDenied):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "permission denied"})

	case errors.As(err, &stateErr):
		return conflict(c, fiber.Map{
			"error":     "invalid state transition",
			"from":      stateErr.From,
			"attempted": stateErr.Attempted,
		})

	case errors.As(err, &bookingErr):
		return conflict(c, fiber.Map{
			"error":                  "double booking",
			"conflictingAppointment": bookingErr.ConflictingAppointmentID,
		})

	case errors.As(err, &conflictErr):
		return conflict(c, fiber.Map{
			"error":        "concurrent modification",
			"currentState": conflictErr.CurrentState,
			"suggestion":   conflictErr.Suggestion,
		})
	case errors.Is(err, domain.ErrConflict):
		return conflict(c, fiber.Map{"error": "concurrent modification"})

	case errors.Is(err, domain.ErrInvalidTimeWindow):
		return badRequest(c, err.Error())

	default:
		return internalError(c)
	}
}
