package server

import (
	"github.com/sirupsen/logrus"

	"github.com/NeuralTrust/CareGuard/pkg/config"
	"github.com/NeuralTrust/CareGuard/pkg/server/router"
)

type (
	EngineServerDI struct {
		Config  *config.Config
		Logger  *logrus.Logger
		Routers []router.ServerRouter
		// HealthChecks back the /health readiness probe.
		HealthChecks []HealthCheck
	}
	// EngineServer answers inspection calls from the chat application.
	EngineServer struct {
		*BaseServer
	}
)

func NewEngineServer(di EngineServerDI) *EngineServer {
	s := &EngineServer{
		BaseServer: NewBaseServer(di.Config, di.Logger).
			WithHealthChecks(di.HealthChecks...).
			WithRouters(di.Routers...),
	}
	s.BaseServer.setupMetricsEndpoint()
	return s
}

func (s *EngineServer) Run() error {
	return s.listen("engine", s.Config.Server.EnginePort)
}
