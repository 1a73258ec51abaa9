package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/NeuralTrust/CareGuard/pkg/app/moderation"
	"github.com/NeuralTrust/CareGuard/pkg/domain/decision"
	domainErrors "github.com/NeuralTrust/CareGuard/pkg/domain/errors"
	"github.com/NeuralTrust/CareGuard/pkg/handlers/http/request"
)

type correctDecisionHandler struct {
	logger   *logrus.Logger
	pipeline moderation.Pipeline
}

func NewCorrectDecisionHandler(logger *logrus.Logger, pipeline moderation.Pipeline) Handler {
	return &correctDecisionHandler{
		logger:   logger,
		pipeline: pipeline,
	}
}

// Handle @Summary Correct a moderation decision
// @Description Records a new decision that supersedes the given one. The original is never modified.
// @Tags Decisions
// @Accept json
// @Produce json
// @Param decision_id path string true "Decision ID"
// @Param request body request.CorrectDecisionRequest true "Corrected action"
// @Success 201 {object} decision.Decision "Superseding decision"
// @Failure 404 {object} map[string]interface{} "Decision not found"
// @Router /api/v1/decisions/{decision_id}/corrections [post]
func (h *correctDecisionHandler) Handle(c *fiber.Ctx) error {
	id, err := uuidParam(c, "decision_id")
	if err != nil {
		return respondError(c, h.logger, err)
	}
	who := responder(c)
	if who == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "responder identity required"})
	}

	var req request.CorrectDecisionRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, h.logger, domainErrors.NewValidationError("body", "invalid request body"))
	}
	if err := req.Validate(); err != nil {
		return respondError(c, h.logger, err)
	}

	corrected, err := h.pipeline.Correct(c.UserContext(), id, decision.Action(req.Action), req.Reason, who)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.Status(fiber.StatusCreated).JSON(corrected)
}
