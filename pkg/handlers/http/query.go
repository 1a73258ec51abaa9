package http

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/NeuralTrust/CareGuard/pkg/common"
	domainErrors "github.com/NeuralTrust/CareGuard/pkg/domain/errors"
)

func pagination(c *fiber.Ctx) (offset, limit int) {
	limit = common.DefaultPageLimit
	if offsetStr := c.Query("offset"); offsetStr != "" {
		if val, err := strconv.Atoi(offsetStr); err == nil && val >= 0 {
			offset = val
		}
	}
	if limitStr := c.Query("limit"); limitStr != "" {
		if val, err := strconv.Atoi(limitStr); err == nil && val > 0 && val <= common.MaxPageLimit {
			limit = val
		}
	}
	return offset, limit
}

// timeRange reads the optional from/to query parameters as RFC3339.
func timeRange(c *fiber.Ctx) (from, to time.Time, err error) {
	if s := c.Query("from"); s != "" {
		if from, err = time.Parse(time.RFC3339, s); err != nil {
			return from, to, domainErrors.NewValidationError("from", "must be RFC3339")
		}
	}
	if s := c.Query("to"); s != "" {
		if to, err = time.Parse(time.RFC3339, s); err != nil {
			return from, to, domainErrors.NewValidationError("to", "must be RFC3339")
		}
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return from, to, domainErrors.NewValidationError("to", "must not be before from")
	}
	return from, to, nil
}

func uuidParam(c *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, domainErrors.NewValidationError(name, "must be a uuid")
	}
	return id, nil
}

// responder returns the identity the auth middleware stored for this request.
func responder(c *fiber.Ctx) string {
	id, _ := c.Locals(string(common.ResponderContextKey)).(string)
	return id
}
