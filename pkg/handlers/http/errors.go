package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	domainErrors "github.com/NeuralTrust/CareGuard/pkg/domain/errors"
)

// statusFor maps domain errors onto HTTP status codes. Anything unknown is
// an internal error.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domainErrors.ErrValidation):
		return fiber.StatusBadRequest
	case errors.Is(err, domainErrors.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, domainErrors.ErrPolicyConflict):
		return fiber.StatusConflict
	case errors.Is(err, domainErrors.ErrStoreUnavailable):
		return fiber.StatusServiceUnavailable
	case errors.Is(err, domainErrors.ErrDictionaryLoadFailure):
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

func respondError(c *fiber.Ctx, logger *logrus.Logger, err error) error {
	status := statusFor(err)
	entry := logger.WithError(err).WithFields(logrus.Fields{
		"path":   c.Path(),
		"status": status,
	})
	if status >= fiber.StatusInternalServerError {
		entry.Error("request failed")
	} else {
		entry.Debug("request rejected")
	}
	message := err.Error()
	if status == fiber.StatusInternalServerError {
		message = "internal server error"
	}
	return c.Status(status).JSON(fiber.Map{"error": message})
}
