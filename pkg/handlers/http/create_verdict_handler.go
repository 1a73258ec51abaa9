package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/NeuralTrust/CareGuard/pkg/app/feedback"
	domainErrors "github.com/NeuralTrust/CareGuard/pkg/domain/errors"
	"github.com/NeuralTrust/CareGuard/pkg/handlers/http/request"
)

type createVerdictHandler struct {
	logger   *logrus.Logger
	feedback feedback.Service
}

func NewCreateVerdictHandler(logger *logrus.Logger, feedback feedback.Service) Handler {
	return &createVerdictHandler{
		logger:   logger,
		feedback: feedback,
	}
}

// Handle @Summary Submit a reviewer verdict
// @Description Stores a true/false positive judgement on a decision and queues it for the feedback loop
// @Tags Feedback
// @Accept json
// @Produce json
// @Param request body request.CreateVerdictRequest true "Verdict"
// @Success 202 {object} verdict.Verdict "Stored verdict"
// @Failure 404 {object} map[string]interface{} "Decision not found"
// @Router /api/v1/verdicts [post]
func (h *createVerdictHandler) Handle(c *fiber.Ctx) error {
	who := responder(c)
	if who == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "responder identity required"})
	}

	var req request.CreateVerdictRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, h.logger, domainErrors.NewValidationError("body", "invalid request body"))
	}
	v, err := req.ToVerdict(who)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	if err := h.feedback.Ingest(c.UserContext(), v); err != nil {
		return respondError(c, h.logger, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(v)
}
