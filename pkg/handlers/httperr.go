package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"railbook/pkg/models"
)

// statusFor maps the engine error taxonomy onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrInvalidInput):
		return 400
	case errors.Is(err, models.ErrPaymentDeclined):
		return 402
	case errors.Is(err, models.ErrNotFound):
		return 404
	case errors.Is(err, models.ErrInsufficientSeats),
		errors.Is(err, models.ErrInvalidState):
		return 409
	}
	return 500
}

func fail(c *fiber.Ctx, err error) error {
	return c.Status(statusFor(err)).JSON(fiber.Map{"error": err.Error()})
}
