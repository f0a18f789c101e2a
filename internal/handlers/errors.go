package handlers

import (
	"errors"
	"fmt"

	"bazaar/internal/payment"
	"bazaar/internal/pricing"
	"bazaar/internal/repositories"
	"bazaar/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// statusFor classifies a workflow error into an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrMissingField),
		errors.Is(err, services.ErrInvalidDeliverySlot),
		errors.Is(err, services.ErrAboveCODLimit),
		errors.Is(err, services.ErrInvalidSignature),
		errors.Is(err, services.ErrNotOnlineOrder),
		errors.Is(err, pricing.ErrInvalidPrice),
		errors.Is(err, pricing.ErrInvalidQuantity),
		errors.Is(err, pricing.ErrBelowMinimum):
		return fiber.StatusBadRequest
	case errors.Is(err, pricing.ErrProductUnavailable),
		errors.Is(err, repositories.ErrNoProducts),
		errors.Is(err, repositories.ErrOrderNotFound),
		errors.Is(err, repositories.ErrUserNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, services.ErrRequestInProgress):
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

// respondError writes the JSON error body for err.
func respondError(c *fiber.Ctx, message string, err error) error {
	status := statusFor(err)
	body := fiber.Map{
		"message": message,
		"error":   err.Error(),
	}
	event := log.Warn()
	if status >= fiber.StatusInternalServerError {
		event = log.Error()
		switch {
		case errors.Is(err, repositories.ErrCatalogUnavailable):
			body["details"] = "catalog service unavailable"
		case errors.Is(err, payment.ErrGateway):
			body["details"] = "payment gateway error"
		}
	}
	event.Err(err).Int("status", status).Str("path", c.Path()).Msg(message)
	return c.Status(status).JSON(body)
}

// validationFailed writes a single 400 listing every failing field.
func validationFailed(c *fiber.Ctx, err error) error {
	details := make(map[string]string)
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		for _, e := range validationErrors {
			details[e.Namespace()] = fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag())
		}
	}
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"message": "Validation failed",
		"error":   services.ErrMissingField.Error(),
		"details": details,
	})
}

func invalidBody(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"message": "Invalid request body",
		"error":   err.Error(),
	})
}
