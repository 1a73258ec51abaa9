package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/NeuralTrust/CareGuard/pkg/app/moderation"
	"github.com/NeuralTrust/CareGuard/pkg/handlers/http/request"
)

type inspectHandler struct {
	logger   *logrus.Logger
	pipeline moderation.Pipeline
}

func NewInspectHandler(logger *logrus.Logger, pipeline moderation.Pipeline) Handler {
	return &inspectHandler{
		logger:   logger,
		pipeline: pipeline,
	}
}

// Handle @Summary Inspect a message
// @Description Runs a user or assistant message through the guardrails and returns the text to deliver
// @Tags Engine
// @Accept json
// @Produce json
// @Param request body request.InspectRequest true "Message to inspect"
// @Success 200 {object} moderation.InspectResult "Moderation decision"
// @Failure 400 {object} map[string]interface{} "Invalid request"
// @Router /v1/inspect [post]
func (h *inspectHandler) Handle(c *fiber.Ctx) error {
	req, err := request.ParseInspectRequest(c.Body())
	if err != nil {
		return respondError(c, h.logger, err)
	}

	result, err := h.pipeline.Inspect(c.UserContext(), req.ToModeration())
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.Status(fiber.StatusOK).JSON(result)
}
