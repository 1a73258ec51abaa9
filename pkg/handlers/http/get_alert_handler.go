package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/NeuralTrust/CareGuard/pkg/app/crisis"
)

type getAlertHandler struct {
	logger   *logrus.Logger
	workflow crisis.Workflow
}

func NewGetAlertHandler(logger *logrus.Logger, workflow crisis.Workflow) Handler {
	return &getAlertHandler{
		logger:   logger,
		workflow: workflow,
	}
}

// Handle @Summary Get a crisis alert
// @Tags Alerts
// @Produce json
// @Param alert_id path string true "Alert ID"
// @Success 200 {object} alert.Alert "Alert"
// @Failure 404 {object} map[string]interface{} "Alert not found"
// @Router /api/v1/alerts/{alert_id} [get]
func (h *getAlertHandler) Handle(c *fiber.Ctx) error {
	id, err := uuidParam(c, "alert_id")
	if err != nil {
		return respondError(c, h.logger, err)
	}
	a, err := h.workflow.Get(c.UserContext(), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.Status(fiber.StatusOK).JSON(a)
}
