package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/NeuralTrust/CareGuard/pkg/app/feedback"
)

type approveProposalHandler struct {
	logger   *logrus.Logger
	feedback feedback.Service
}

func NewApproveProposalHandler(logger *logrus.Logger, feedback feedback.Service) Handler {
	return &approveProposalHandler{
		logger:   logger,
		feedback: feedback,
	}
}

// Handle @Summary Approve a weight proposal
// @Description Applies the proposed weight as a new dictionary version
// @Tags Feedback
// @Produce json
// @Param proposal_id path string true "Proposal ID"
// @Success 200 {object} verdict.Proposal "Approved proposal"
// @Failure 409 {object} map[string]interface{} "Proposal no longer applies"
// @Router /api/v1/proposals/{proposal_id}/approve [post]
func (h *approveProposalHandler) Handle(c *fiber.Ctx) error {
	id, err := uuidParam(c, "proposal_id")
	if err != nil {
		return respondError(c, h.logger, err)
	}
	who := responder(c)
	if who == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "responder identity required"})
	}
	p, err := h.feedback.Approve(c.UserContext(), id, who)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.Status(fiber.StatusOK).JSON(p)
}
