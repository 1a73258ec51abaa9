package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/NeuralTrust/CareGuard/pkg/app/dictionary"
	domainErrors "github.com/NeuralTrust/CareGuard/pkg/domain/errors"
	"github.com/NeuralTrust/CareGuard/pkg/domain/pattern"
	"github.com/NeuralTrust/CareGuard/pkg/handlers/http/request"
)

type addPatternVersionHandler struct {
	logger     *logrus.Logger
	dictionary dictionary.Service
}

func NewAddPatternVersionHandler(logger *logrus.Logger, dictionary dictionary.Service) Handler {
	return &addPatternVersionHandler{
		logger:     logger,
		dictionary: dictionary,
	}
}

// Handle @Summary Add a pattern version
// @Description Deactivates the active version of the key and stores the new one. Prior versions are kept for audit.
// @Tags Dictionary
// @Accept json
// @Produce json
// @Param request body request.AddPatternRequest true "Pattern"
// @Success 201 {object} pattern.Entry "Stored version"
// @Failure 400 {object} map[string]interface{} "Invalid pattern"
// @Router /api/v1/patterns [post]
func (h *addPatternVersionHandler) Handle(c *fiber.Ctx) error {
	who := responder(c)
	if who == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "responder identity required"})
	}

	var req request.AddPatternRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, h.logger, domainErrors.NewValidationError("body", "invalid request body"))
	}
	if req.Key == "" {
		return respondError(c, h.logger, domainErrors.NewValidationError("key", "is required"))
	}

	versions, err := h.dictionary.Versions(c.UserContext(), req.Key)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	var prior *pattern.Entry
	for i := range versions {
		if versions[i].Active {
			prior = &versions[i]
			break
		}
	}

	stored, err := h.dictionary.AddVersion(c.UserContext(), req.ToEntry(prior, who))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.Status(fiber.StatusCreated).JSON(stored)
}
