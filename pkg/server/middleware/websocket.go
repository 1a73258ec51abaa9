package middleware

import (
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/NeuralTrust/CareGuard/pkg/common"
	infra "github.com/NeuralTrust/CareGuard/pkg/infra/websocket"
)

type websocketMiddleware struct {
	logger    *logrus.Logger
	semaphore *infra.Semaphore
}

// NewWebsocketMiddleware accepts upgrades while the feed has capacity and
// rejects plain HTTP requests to the feed route.
func NewWebsocketMiddleware(logger *logrus.Logger, maxConnections int) Middleware {
	return &websocketMiddleware{
		logger:    logger,
		semaphore: infra.NewSemaphore(infra.WithMaxConnections(maxConnections)),
	}
}

func (m *websocketMiddleware) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		if !m.semaphore.Acquire() {
			m.logger.WithField("connections", m.semaphore.Current()).
				Warn("maximum feed connections reached, rejecting connection")
			return fiber.ErrTooManyRequests
		}
		c.Locals(string(common.WsSemaphoreContextKey), m.semaphore)
		return c.Next()
	}
}
