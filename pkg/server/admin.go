package server

import (
	"github.com/sirupsen/logrus"

	"github.com/NeuralTrust/CareGuard/pkg/config"
	"github.com/NeuralTrust/CareGuard/pkg/server/router"
)

type (
	AdminServerDI struct {
		Config  *config.Config
		Logger  *logrus.Logger
		Routers []router.ServerRouter
		// HealthChecks back the /health readiness probe.
		HealthChecks []HealthCheck
	}
	// AdminServer hosts the responder dashboard and operator endpoints.
	AdminServer struct {
		*BaseServer
	}
)

func NewAdminServer(di AdminServerDI) *AdminServer {
	return &AdminServer{
		BaseServer: NewBaseServer(di.Config, di.Logger).
			WithHealthChecks(di.HealthChecks...).
			WithRouters(di.Routers...),
	}
}

func (s *AdminServer) Run() error {
	return s.listen("admin", s.Config.Server.AdminPort)
}
