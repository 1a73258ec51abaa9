package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/NeuralTrust/CareGuard/pkg/app/dictionary"
	domainErrors "github.com/NeuralTrust/CareGuard/pkg/domain/errors"
	"github.com/NeuralTrust/CareGuard/pkg/domain/pattern"
	"github.com/NeuralTrust/CareGuard/pkg/handlers/http/response"
)

type listPatternsHandler struct {
	logger     *logrus.Logger
	dictionary dictionary.Service
}

func NewListPatternsHandler(logger *logrus.Logger, dictionary dictionary.Service) Handler {
	return &listPatternsHandler{
		logger:     logger,
		dictionary: dictionary,
	}
}

// Handle @Summary List dictionary patterns
// @Description Without key, returns the active snapshot. With key, returns every stored version of that pattern.
// @Tags Dictionary
// @Produce json
// @Param category query string false "Restrict the snapshot to one category"
// @Param key query string false "Pattern key whose versions to list"
// @Success 200 {object} response.DictionaryOutput "Active snapshot"
// @Router /api/v1/patterns [get]
func (h *listPatternsHandler) Handle(c *fiber.Ctx) error {
	if key := c.Query("key"); key != "" {
		versions, err := h.dictionary.Versions(c.UserContext(), key)
		if err != nil {
			return respondError(c, h.logger, err)
		}
		if versions == nil {
			versions = []pattern.Entry{}
		}
		return c.Status(fiber.StatusOK).JSON(versions)
	}

	category := pattern.Category(c.Query("category"))
	if category != "" && !category.Valid() {
		return respondError(c, h.logger, domainErrors.NewValidationError("category", "unknown category"))
	}
	return c.Status(fiber.StatusOK).JSON(response.NewDictionaryOutput(h.dictionary.Current(), category, true))
}
