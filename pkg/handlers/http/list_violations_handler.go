package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	domainErrors "github.com/NeuralTrust/CareGuard/pkg/domain/errors"
	"github.com/NeuralTrust/CareGuard/pkg/domain/pattern"
	"github.com/NeuralTrust/CareGuard/pkg/domain/violation"
)

type listViolationsHandler struct {
	logger *logrus.Logger
	repo   violation.Repository
}

func NewListViolationsHandler(logger *logrus.Logger, repo violation.Repository) Handler {
	return &listViolationsHandler{
		logger: logger,
		repo:   repo,
	}
}

// Handle @Summary List boundary violations
// @Description Returns assistant replies the boundary enforcer rewrote
// @Tags Decisions
// @Produce json
// @Param session_id query string false "Session ID"
// @Param decision_id query string false "Decision ID"
// @Param type query string false "diagnosis, dosing or legal"
// @Param from query string false "RFC3339 lower bound"
// @Param to query string false "RFC3339 upper bound"
// @Success 200 {array} violation.Violation "List of violations"
// @Router /api/v1/violations [get]
func (h *listViolationsHandler) Handle(c *fiber.Ctx) error {
	from, to, err := timeRange(c)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	offset, limit := pagination(c)

	filter := violation.Filter{
		SessionID: c.Query("session_id"),
		Type:      pattern.Subtype(c.Query("type")),
		From:      from,
		To:        to,
		Limit:     limit,
		Offset:    offset,
	}
	if s := c.Query("decision_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			return respondError(c, h.logger, domainErrors.NewValidationError("decision_id", "must be a uuid"))
		}
		filter.DecisionID = id
	}

	violations, err := h.repo.List(c.UserContext(), filter)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	if violations == nil {
		violations = []violation.Violation{}
	}
	return c.Status(fiber.StatusOK).JSON(violations)
}
