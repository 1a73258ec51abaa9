package server

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

const healthCheckTimeout = 2 * time.Second

// HealthCheck probes one dependency. Detail is echoed in the /health
// response; an error marks the instance not ready.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) (detail interface{}, err error)
}

type checkResult struct {
	Status string      `json:"status"`
	Detail interface{} `json:"detail,omitempty"`
	Error  string      `json:"error,omitempty"`
}

func runHealthChecks(ctx context.Context, checks []HealthCheck) (map[string]checkResult, bool) {
	results := make(map[string]checkResult, len(checks))
	healthy := true
	for _, hc := range checks {
		cctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
		detail, err := hc.Check(cctx)
		cancel()
		if err != nil {
			healthy = false
			results[hc.Name] = checkResult{Status: "down", Detail: detail, Error: err.Error()}
			continue
		}
		results[hc.Name] = checkResult{Status: "up", Detail: detail}
	}
	return results, healthy
}

// setupHealthCheck registers the readiness probe (/health, runs every
// check) and the liveness probe (/__/health, process only).
func (s *BaseServer) setupHealthCheck() {
	s.Router.Get(HealthPath, func(ctx *fiber.Ctx) error {
		results, healthy := runHealthChecks(ctx.UserContext(), s.checks)
		status, code := "healthy", fiber.StatusOK
		if !healthy {
			status, code = "unhealthy", fiber.StatusServiceUnavailable
		}
		body := fiber.Map{
			"status": status,
			"time":   time.Now().Format(time.RFC3339),
		}
		if len(results) > 0 {
			body["checks"] = results
		}
		return ctx.Status(code).JSON(body)
	})
	s.Router.Get(AdminHealthPath, func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"status": "ok",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
}
