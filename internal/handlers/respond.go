package handlers

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/turulko-oleksandr/cinema-api/internal/logging"
	"github.com/turulko-oleksandr/cinema-api/internal/services"
)

// decode parses the JSON body into dst and validates it. When it returns
// false the 400 response has already been written.
func decode(c *fiber.Ctx, validate *validator.Validate, dst any) (bool, error) {
	if err := c.BodyParser(dst); err != nil {
		return false, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}
	if err := validate.Struct(dst); err != nil {
		var validationErrors validator.ValidationErrors
		if !errors.As(err, &validationErrors) {
			return false, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"message": "Validation failed",
				"error":   err.Error(),
			})
		}
		errorMessages := make(map[string]string)
		for _, e := range validationErrors {
			errorMessages[e.Field()] = fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag())
		}
		return false, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation failed",
			"errors":  errorMessages,
		})
	}
	return true, nil
}

// fail maps a service error to its HTTP status and writes the error body.
func fail(c *fiber.Ctx, message string, err error) error {
	status := statusOf(err)
	if status >= fiber.StatusInternalServerError {
		logging.FromContext(c.UserContext()).Error(message, "error", err)
	}
	return c.Status(status).JSON(fiber.Map{
		"message": message,
		"error":   err.Error(),
	})
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, services.ErrNotFound),
		errors.Is(err, services.ErrUnknownSession):
		return fiber.StatusNotFound
	case errors.Is(err, services.ErrDuplicateItem),
		errors.Is(err, services.ErrAlreadyPurchased),
		errors.Is(err, services.ErrConflictingPurchase),
		errors.Is(err, services.ErrAlreadyHasSession),
		errors.Is(err, services.ErrUserExists),
		errors.Is(err, services.ErrAlreadyExists),
		errors.Is(err, services.ErrInUse):
		return fiber.StatusConflict
	case errors.Is(err, services.ErrEmptyCart),
		errors.Is(err, services.ErrInvalidState),
		errors.Is(err, services.ErrInvalidSignature),
		errors.Is(err, services.ErrMalformedEvent),
		errors.Is(err, services.ErrInvalidToken),
		errors.Is(err, services.ErrInvalidFile):
		return fiber.StatusBadRequest
	case errors.Is(err, services.ErrInvalidCredentials):
		return fiber.StatusUnauthorized
	case errors.Is(err, services.ErrInactiveUser):
		return fiber.StatusForbidden
	case errors.Is(err, services.ErrGatewayUnavailable):
		return fiber.StatusBadGateway
	case errors.Is(err, services.ErrStorageUnavailable):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

// page reads offset and limit query parameters.
func page(c *fiber.Ctx) (offset, limit int) {
	offset, _ = strconv.Atoi(c.Query("offset", "0"))
	limit, _ = strconv.Atoi(c.Query("limit", "0"))
	return offset, limit
}
