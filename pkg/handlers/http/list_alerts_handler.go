package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/NeuralTrust/CareGuard/pkg/app/crisis"
	"github.com/NeuralTrust/CareGuard/pkg/domain/alert"
	"github.com/NeuralTrust/CareGuard/pkg/domain/pattern"
)

type listAlertsHandler struct {
	logger   *logrus.Logger
	workflow crisis.Workflow
}

func NewListAlertsHandler(logger *logrus.Logger, workflow crisis.Workflow) Handler {
	return &listAlertsHandler{
		logger:   logger,
		workflow: workflow,
	}
}

// Handle @Summary List crisis alerts
// @Description Returns alerts filtered by status, session, category and time range, newest first
// @Tags Alerts
// @Produce json
// @Param status query string false "new, reviewing, resolved or escalated_emergency"
// @Param session_id query string false "Session ID"
// @Param category query string false "Risk category"
// @Param from query string false "RFC3339 lower bound"
// @Param to query string false "RFC3339 upper bound"
// @Param offset query int false "Offset"
// @Param limit query int false "Limit (max 100)"
// @Success 200 {array} alert.Alert "List of alerts"
// @Router /api/v1/alerts [get]
func (h *listAlertsHandler) Handle(c *fiber.Ctx) error {
	from, to, err := timeRange(c)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	offset, limit := pagination(c)

	alerts, err := h.workflow.List(c.UserContext(), alert.Filter{
		SessionID: c.Query("session_id"),
		Status:    alert.Status(c.Query("status")),
		Category:  pattern.Category(c.Query("category")),
		From:      from,
		To:        to,
		Limit:     limit,
		Offset:    offset,
	})
	if err != nil {
		return respondError(c, h.logger, err)
	}
	if alerts == nil {
		alerts = []alert.Alert{}
	}
	return c.Status(fiber.StatusOK).JSON(alerts)
}
