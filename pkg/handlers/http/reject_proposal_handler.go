package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/NeuralTrust/CareGuard/pkg/app/feedback"
)

type rejectProposalHandler struct {
	logger   *logrus.Logger
	feedback feedback.Service
}

func NewRejectProposalHandler(logger *logrus.Logger, feedback feedback.Service) Handler {
	return &rejectProposalHandler{
		logger:   logger,
		feedback: feedback,
	}
}

// Handle @Summary Reject a weight proposal
// @Tags Feedback
// @Produce json
// @Param proposal_id path string true "Proposal ID"
// @Success 200 {object} verdict.Proposal "Rejected proposal"
// @Failure 409 {object} map[string]interface{} "Proposal is not pending"
// @Router /api/v1/proposals/{proposal_id}/reject [post]
func (h *rejectProposalHandler) Handle(c *fiber.Ctx) error {
	id, err := uuidParam(c, "proposal_id")
	if err != nil {
		return respondError(c, h.logger, err)
	}
	who := responder(c)
	if who == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "responder identity required"})
	}
	p, err := h.feedback.Reject(c.UserContext(), id, who)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.Status(fiber.StatusOK).JSON(p)
}
