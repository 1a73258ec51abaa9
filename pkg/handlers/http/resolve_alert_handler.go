package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/NeuralTrust/CareGuard/pkg/app/crisis"
	domainErrors "github.com/NeuralTrust/CareGuard/pkg/domain/errors"
	"github.com/NeuralTrust/CareGuard/pkg/handlers/http/request"
)

type resolveAlertHandler struct {
	logger   *logrus.Logger
	workflow crisis.Workflow
}

func NewResolveAlertHandler(logger *logrus.Logger, workflow crisis.Workflow) Handler {
	return &resolveAlertHandler{
		logger:   logger,
		workflow: workflow,
	}
}

// Handle @Summary Resolve a crisis alert
// @Description Closes an alert the responder has been working. Resolved alerts are terminal.
// @Tags Alerts
// @Accept json
// @Produce json
// @Param alert_id path string true "Alert ID"
// @Param request body request.ResolveAlertRequest true "Resolution note"
// @Success 200 {object} alert.Alert "Updated alert"
// @Failure 409 {object} map[string]interface{} "Transition not allowed"
// @Router /api/v1/alerts/{alert_id}/resolve [post]
func (h *resolveAlertHandler) Handle(c *fiber.Ctx) error {
	id, err := uuidParam(c, "alert_id")
	if err != nil {
		return respondError(c, h.logger, err)
	}
	who := responder(c)
	if who == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "responder identity required"})
	}

	var req request.ResolveAlertRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, h.logger, domainErrors.NewValidationError("body", "invalid request body"))
	}
	if err := req.Validate(); err != nil {
		return respondError(c, h.logger, err)
	}

	a, err := h.workflow.Resolve(c.UserContext(), id, who, req.Note)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.Status(fiber.StatusOK).JSON(a)
}
