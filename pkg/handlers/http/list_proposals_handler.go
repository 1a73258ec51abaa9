package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/NeuralTrust/CareGuard/pkg/app/feedback"
	"github.com/NeuralTrust/CareGuard/pkg/domain/verdict"
)

type listProposalsHandler struct {
	logger   *logrus.Logger
	feedback feedback.Service
}

func NewListProposalsHandler(logger *logrus.Logger, feedback feedback.Service) Handler {
	return &listProposalsHandler{
		logger:   logger,
		feedback: feedback,
	}
}

// Handle @Summary List weight proposals
// @Tags Feedback
// @Produce json
// @Param status query string false "pending, approved or rejected"
// @Success 200 {array} verdict.Proposal "List of proposals"
// @Router /api/v1/proposals [get]
func (h *listProposalsHandler) Handle(c *fiber.Ctx) error {
	proposals, err := h.feedback.Proposals(c.UserContext(), verdict.ProposalStatus(c.Query("status")))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	if proposals == nil {
		proposals = []verdict.Proposal{}
	}
	return c.Status(fiber.StatusOK).JSON(proposals)
}
