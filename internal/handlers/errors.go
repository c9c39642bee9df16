package handlers

import (
	"errors"
	"fmt"

	"pesan/internal/logging"
	"pesan/internal/models"
	"pesan/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// respondError maps service errors onto HTTP statuses.
func respondError(c *fiber.Ctx, message string, err error) error {
	var settleErr *services.SettlementError
	if errors.As(err, &settleErr) {
		body := fiber.Map{
			"message": "Payment was not successful",
			"error":   err.Error(),
			"code":    settleErr.Code,
		}
		if settleErr.Payment != nil {
			body["payment"] = models.NewPaymentView(*settleErr.Payment)
		}
		return c.Status(fiber.StatusPaymentRequired).JSON(body)
	}

	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, services.ErrInvalidInput):
		status = fiber.StatusBadRequest
	case errors.Is(err, services.ErrMenuItemUnavailable), errors.Is(err, services.ErrMenuItemWrongRestaurant):
		status = fiber.StatusUnprocessableEntity
	case errors.Is(err, services.ErrForbidden):
		status = fiber.StatusForbidden
	case errors.Is(err, services.ErrInvalidState), errors.Is(err, services.ErrConflict):
		status = fiber.StatusConflict
	}

	log := logging.FromContext(c.UserContext())
	if status == fiber.StatusInternalServerError {
		log.Error(message, "error", err)
	} else {
		log.Info(message, "error", err, "status", status)
	}
	return c.Status(status).JSON(fiber.Map{
		"message": message,
		"error":   err.Error(),
	})
}

// respondValidation reports a request body that failed validation.
func respondValidation(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation failed",
			"error":   err.Error(),
		})
	}
	errorMessages := make(map[string]string)
	for _, e := range validationErrors {
		errorMessages[e.Field()] = fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag())
	}
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"message": "Validation failed",
		"errors":  errorMessages,
	})
}
