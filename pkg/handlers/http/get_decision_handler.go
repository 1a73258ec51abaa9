package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/NeuralTrust/CareGuard/pkg/domain/decision"
)

type getDecisionHandler struct {
	logger *logrus.Logger
	repo   decision.Repository
}

func NewGetDecisionHandler(logger *logrus.Logger, repo decision.Repository) Handler {
	return &getDecisionHandler{
		logger: logger,
		repo:   repo,
	}
}

// Handle @Summary Get a moderation decision
// @Tags Decisions
// @Produce json
// @Param decision_id path string true "Decision ID"
// @Success 200 {object} decision.Decision "Decision"
// @Failure 404 {object} map[string]interface{} "Decision not found"
// @Router /api/v1/decisions/{decision_id} [get]
func (h *getDecisionHandler) Handle(c *fiber.Ctx) error {
	id, err := uuidParam(c, "decision_id")
	if err != nil {
		return respondError(c, h.logger, err)
	}
	d, err := h.repo.Get(c.UserContext(), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.Status(fiber.StatusOK).JSON(d)
}
