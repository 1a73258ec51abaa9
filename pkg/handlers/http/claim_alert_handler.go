package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/NeuralTrust/CareGuard/pkg/app/crisis"
)

type claimAlertHandler struct {
	logger   *logrus.Logger
	workflow crisis.Workflow
}

func NewClaimAlertHandler(logger *logrus.Logger, workflow crisis.Workflow) Handler {
	return &claimAlertHandler{
		logger:   logger,
		workflow: workflow,
	}
}

// Handle @Summary Claim a crisis alert
// @Description Moves a new alert to reviewing under the calling responder. Claiming twice is a no-op.
// @Tags Alerts
// @Produce json
// @Param alert_id path string true "Alert ID"
// @Success 200 {object} alert.Alert "Updated alert"
// @Failure 409 {object} map[string]interface{} "Transition not allowed"
// @Router /api/v1/alerts/{alert_id}/claim [post]
func (h *claimAlertHandler) Handle(c *fiber.Ctx) error {
	id, err := uuidParam(c, "alert_id")
	if err != nil {
		return respondError(c, h.logger, err)
	}
	who := responder(c)
	if who == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "responder identity required"})
	}
	a, err := h.workflow.Claim(c.UserContext(), id, who)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.Status(fiber.StatusOK).JSON(a)
}
