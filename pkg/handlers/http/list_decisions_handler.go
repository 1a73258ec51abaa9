package http

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/NeuralTrust/CareGuard/pkg/domain/decision"
	domainErrors "github.com/NeuralTrust/CareGuard/pkg/domain/errors"
	"github.com/NeuralTrust/CareGuard/pkg/domain/pattern"
)

type listDecisionsHandler struct {
	logger *logrus.Logger
	repo   decision.Repository
}

func NewListDecisionsHandler(logger *logrus.Logger, repo decision.Repository) Handler {
	return &listDecisionsHandler{
		logger: logger,
		repo:   repo,
	}
}

// Handle @Summary List moderation decisions
// @Tags Decisions
// @Produce json
// @Param session_id query string false "Session ID"
// @Param category query string false "Risk category"
// @Param action query string false "allow, redact, block or escalate"
// @Param flagged query bool false "Only decisions flagged for review"
// @Param from query string false "RFC3339 lower bound"
// @Param to query string false "RFC3339 upper bound"
// @Param offset query int false "Offset"
// @Param limit query int false "Limit (max 100)"
// @Success 200 {array} decision.Decision "List of decisions"
// @Router /api/v1/decisions [get]
func (h *listDecisionsHandler) Handle(c *fiber.Ctx) error {
	from, to, err := timeRange(c)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	offset, limit := pagination(c)

	filter := decision.Filter{
		SessionID: c.Query("session_id"),
		Category:  pattern.Category(c.Query("category")),
		Action:    decision.Action(c.Query("action")),
		From:      from,
		To:        to,
		Limit:     limit,
		Offset:    offset,
	}
	if filter.Action != "" && !filter.Action.Valid() {
		return respondError(c, h.logger, domainErrors.NewValidationError("action", "unknown action"))
	}
	if s := c.Query("flagged"); s != "" {
		flagged, err := strconv.ParseBool(s)
		if err != nil {
			return respondError(c, h.logger, domainErrors.NewValidationError("flagged", "must be a boolean"))
		}
		filter.Flagged = &flagged
	}

	decisions, err := h.repo.List(c.UserContext(), filter)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	if decisions == nil {
		decisions = []decision.Decision{}
	}
	return c.Status(fiber.StatusOK).JSON(decisions)
}
