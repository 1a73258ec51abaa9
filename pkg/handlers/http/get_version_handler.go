package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/NeuralTrust/CareGuard/pkg/app/dictionary"
	"github.com/NeuralTrust/CareGuard/pkg/handlers/http/response"
	"github.com/NeuralTrust/CareGuard/pkg/version"
)

type getVersionHandler struct {
	logger     *logrus.Logger
	dictionary dictionary.Service
}

// NewGetVersionHandler reports the build together with the dictionary the
// instance is serving, so operators can tell whether a rollout converged.
func NewGetVersionHandler(logger *logrus.Logger, dictionary dictionary.Service) Handler {
	return &getVersionHandler{
		logger:     logger,
		dictionary: dictionary,
	}
}

// Handle @Summary Get CareGuard Version
// @Description Returns the build and the active dictionary generation
// @Tags Version
// @Produce json
// @Success 200 {object} response.VersionOutput "Version information"
// @Router /version [get]
func (h *getVersionHandler) Handle(c *fiber.Ctx) error {
	out := response.VersionOutput{Info: version.GetInfo()}
	if h.dictionary != nil {
		if snap := h.dictionary.Current(); snap != nil {
			d := response.NewDictionaryOutput(snap, "", false)
			out.Dictionary = &d
		}
	}
	return c.Status(fiber.StatusOK).JSON(out)
}
