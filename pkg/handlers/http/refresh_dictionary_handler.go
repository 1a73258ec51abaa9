package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/NeuralTrust/CareGuard/pkg/app/dictionary"
	"github.com/NeuralTrust/CareGuard/pkg/handlers/http/response"
)

type refreshDictionaryHandler struct {
	logger     *logrus.Logger
	dictionary dictionary.Service
}

func NewRefreshDictionaryHandler(logger *logrus.Logger, dictionary dictionary.Service) Handler {
	return &refreshDictionaryHandler{
		logger:     logger,
		dictionary: dictionary,
	}
}

// Handle @Summary Refresh the dictionary
// @Description Reloads active patterns from the store. On failure the previous snapshot stays in use.
// @Tags Dictionary
// @Produce json
// @Success 200 {object} response.DictionaryOutput "New snapshot"
// @Failure 502 {object} map[string]interface{} "Load failed, previous snapshot kept"
// @Router /api/v1/dictionary/refresh [post]
func (h *refreshDictionaryHandler) Handle(c *fiber.Ctx) error {
	snap, err := h.dictionary.Refresh(c.UserContext())
	if err != nil {
		h.logger.WithError(err).WithField("generation", h.dictionary.Current().Generation).
			Warn("manual dictionary refresh failed")
		return c.Status(statusFor(err)).JSON(fiber.Map{
			"error":      err.Error(),
			"generation": h.dictionary.Current().Generation,
		})
	}
	return c.Status(fiber.StatusOK).JSON(response.NewDictionaryOutput(snap, "", false))
}
