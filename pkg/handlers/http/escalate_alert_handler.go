package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/NeuralTrust/CareGuard/pkg/app/crisis"
	domainErrors "github.com/NeuralTrust/CareGuard/pkg/domain/errors"
	"github.com/NeuralTrust/CareGuard/pkg/handlers/http/request"
)

type escalateAlertHandler struct {
	logger   *logrus.Logger
	workflow crisis.Workflow
}

func NewEscalateAlertHandler(logger *logrus.Logger, workflow crisis.Workflow) Handler {
	return &escalateAlertHandler{
		logger:   logger,
		workflow: workflow,
	}
}

// Handle @Summary Escalate a crisis alert to emergency services
// @Tags Alerts
// @Accept json
// @Produce json
// @Param alert_id path string true "Alert ID"
// @Param request body request.EscalateAlertRequest false "Escalation reason"
// @Success 200 {object} alert.Alert "Updated alert"
// @Failure 409 {object} map[string]interface{} "Transition not allowed"
// @Router /api/v1/alerts/{alert_id}/escalate [post]
func (h *escalateAlertHandler) Handle(c *fiber.Ctx) error {
	id, err := uuidParam(c, "alert_id")
	if err != nil {
		return respondError(c, h.logger, err)
	}
	who := responder(c)
	if who == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "responder identity required"})
	}

	var req request.EscalateAlertRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return respondError(c, h.logger, domainErrors.NewValidationError("body", "invalid request body"))
		}
	}

	a, err := h.workflow.Escalate(c.UserContext(), id, who, req.Reason)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.Status(fiber.StatusOK).JSON(a)
}
