package server

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp/fasthttpadaptor"

	"github.com/NeuralTrust/CareGuard/pkg/config"
	infraPrometheus "github.com/NeuralTrust/CareGuard/pkg/infra/prometheus"
	"github.com/NeuralTrust/CareGuard/pkg/server/router"
)

const (
	HealthPath      = "/health"
	AdminHealthPath = "/__/health"
)

// Server interface defines the common behavior for all servers
type Server interface {
	Run() error
	Shutdown() error
}

type BaseServer struct {
	Config         *config.Config
	Logger         *logrus.Logger
	Router         *fiber.App
	metricsApp     *fiber.App
	metricsStarted bool
	checks         []HealthCheck
}

func NewBaseServer(config *config.Config, logger *logrus.Logger) *BaseServer {
	bodyLimit := 4 * 1024 * 1024
	if n := config.Moderation.MaxTextBytes; n > 0 && 4*n > bodyLimit {
		bodyLimit = 4 * n
	}
	r := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		Network:               fiber.NetworkTCP,
		EnablePrintRoutes:     false,
		BodyLimit:             bodyLimit,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          30 * time.Second,
		IdleTimeout:           120 * time.Second,
		Concurrency:           16384,
	})

	r.Server().NoDefaultServerHeader = true

	server := &BaseServer{
		Config: config,
		Logger: logger,
		Router: r,
	}
	server.setupHealthCheck()
	return server
}

// WithHealthChecks adds dependency probes to /health.
func (s *BaseServer) WithHealthChecks(checks ...HealthCheck) *BaseServer {
	s.checks = append(s.checks, checks...)
	return s
}

func (s *BaseServer) WithRouters(routers ...router.ServerRouter) *BaseServer {
	for _, r := range routers {
		err := r.BuildRoutes(s.Router)
		if err != nil {
			s.Logger.WithError(err).Error("failed to build routes")
		}
	}
	return s
}

func (s *BaseServer) setupMetricsEndpoint() {
	if !s.Config.Metrics.Enabled {
		s.Logger.Info("prometheus metrics are disabled by configuration")
		return
	}
	if s.metricsStarted {
		return
	}
	s.metricsStarted = true

	metricsApp := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})
	metricsApp.Use(recover.New())

	handler := fasthttpadaptor.NewFastHTTPHandler(
		promhttp.HandlerFor(infraPrometheus.Gatherer(), promhttp.HandlerOpts{}),
	)
	metricsApp.Get("/metrics", func(c *fiber.Ctx) error {
		handler(c.Context())
		return nil
	})
	s.metricsApp = metricsApp

	// Start metrics server on a different port
	go func() {
		addr := fmt.Sprintf(":%d", s.Config.Server.MetricsPort)
		if err := metricsApp.Listen(addr); err != nil {
			if !strings.Contains(err.Error(), "address already in use") {
				s.Logger.WithError(err).Error("failed to start metrics server")
			}
		}
	}()
}

func (s *BaseServer) listen(name string, port int) error {
	addr := fmt.Sprintf(":%d", port)
	s.Logger.WithField("addr", addr).Infof("starting %s server", name)
	return s.Router.Listen(addr)
}

func (s *BaseServer) Shutdown() error {
	if s.metricsApp != nil {
		if err := s.metricsApp.Shutdown(); err != nil {
			s.Logger.WithError(err).Warn("failed to stop metrics server")
		}
	}
	return s.Router.Shutdown()
}
