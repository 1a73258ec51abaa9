package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/NeuralTrust/CareGuard/pkg/domain/audit"
	domainErrors "github.com/NeuralTrust/CareGuard/pkg/domain/errors"
	"github.com/NeuralTrust/CareGuard/pkg/infra/auditlogs"
)

type queryAuditHandler struct {
	logger *logrus.Logger
	audit  auditlogs.Service
}

func NewQueryAuditHandler(logger *logrus.Logger, audit auditlogs.Service) Handler {
	return &queryAuditHandler{
		logger: logger,
		audit:  audit,
	}
}

// Handle @Summary Query the audit trail
// @Tags Audit
// @Produce json
// @Param session_id query string false "Session ID"
// @Param category query string false "Risk category"
// @Param component query string false "Emitting component"
// @Param priority query string false "normal, high or critical"
// @Param from query string false "RFC3339 lower bound"
// @Param to query string false "RFC3339 upper bound"
// @Param offset query int false "Offset"
// @Param limit query int false "Limit (max 100)"
// @Success 200 {array} audit.Record "Audit records"
// @Router /api/v1/audit [get]
func (h *queryAuditHandler) Handle(c *fiber.Ctx) error {
	from, to, err := timeRange(c)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	offset, limit := pagination(c)

	filter := audit.Filter{
		SessionID: c.Query("session_id"),
		Category:  c.Query("category"),
		Component: audit.Component(c.Query("component")),
		Priority:  audit.Priority(c.Query("priority")),
		From:      from,
		To:        to,
		Limit:     limit,
		Offset:    offset,
	}
	switch filter.Priority {
	case "", audit.PriorityNormal, audit.PriorityHigh, audit.PriorityCritical:
	default:
		return respondError(c, h.logger, domainErrors.NewValidationError("priority", "unknown priority"))
	}

	records, err := h.audit.Query(c.UserContext(), filter)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	if records == nil {
		records = []audit.Record{}
	}
	return c.Status(fiber.StatusOK).JSON(records)
}
