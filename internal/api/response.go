package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/mxsafiri/nedapay-baseminiapp-sub001/pkg/model"
)

// ok writes a success envelope with the payload under "data".
func ok(c *fiber.Ctx, status int, data any) error {
	return c.Status(status).JSON(fiber.Map{
		"success": true,
		"data":    data,
	})
}

// fail writes a failure envelope with the HTTP status derived from the
// error class: 400 for caller errors, 404 for unknown orders, 500 for
// upstream or internal failures.
func fail(c *fiber.Ctx, err error) error {
	return c.Status(statusForError(err)).JSON(fiber.Map{
		"success": false,
		"error":   err.Error(),
	})
}

// failValidation reports all field violations at once.
func failValidation(c *fiber.Ctx, violations []string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"success": false,
		"error":   "validation failed",
		"errors":  violations,
	})
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, model.ErrInvalidInput):
		return fiber.StatusBadRequest
	case errors.Is(err, model.ErrOrderNotFound):
		return fiber.StatusNotFound
	default:
		return fiber.StatusInternalServerError
	}
}
