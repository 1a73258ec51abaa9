package middleware

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/NeuralTrust/CareGuard/pkg/common"
	"github.com/NeuralTrust/CareGuard/pkg/infra/prometheus"
)

type metricsMiddleware struct {
	logger *logrus.Logger
	server string
}

// NewMetricsMiddleware tags each request with a trace id and records its
// status and latency under the matched route pattern.
func NewMetricsMiddleware(logger *logrus.Logger, server string) Middleware {
	return &metricsMiddleware{
		logger: logger,
		server: server,
	}
}

func (m *metricsMiddleware) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		traceID := c.Get(common.TraceIDHeader)
		if traceID == "" {
			traceID = uuid.NewString()
		}
		c.Locals(string(common.TraceIdKey), traceID)
		c.Locals(string(common.LatencyContextKey), start)
		c.Set(common.TraceIDHeader, traceID)

		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}
		route := c.Route().Path
		elapsed := float64(time.Since(start).Microseconds()) / 1000

		prometheus.HTTPRequestsTotal.WithLabelValues(m.server, route, strconv.Itoa(status)).Inc()
		if prometheus.Config.EnableLatency {
			prometheus.HTTPRequestLatency.WithLabelValues(m.server, route).Observe(elapsed)
		}
		if status >= fiber.StatusInternalServerError {
			m.logger.WithFields(logrus.Fields{
				"trace_id":   traceID,
				"route":      route,
				"status":     status,
				"elapsed_ms": elapsed,
			}).Warn("request failed")
		}
		return err
	}
}
