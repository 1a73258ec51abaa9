package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/NeuralTrust/CareGuard/pkg/common"
	"github.com/NeuralTrust/CareGuard/pkg/infra/auth/jwt"
)

type roleMiddleware struct {
	logger  *logrus.Logger
	allowed map[jwt.Role]struct{}
}

// NewRoleMiddleware only lets through tokens carrying one of roles. It must
// run after the auth middleware.
func NewRoleMiddleware(logger *logrus.Logger, roles ...jwt.Role) Middleware {
	allowed := make(map[jwt.Role]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return &roleMiddleware{
		logger:  logger,
		allowed: allowed,
	}
}

func (m *roleMiddleware) Middleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		role, _ := ctx.Locals(string(common.RoleContextKey)).(string)
		if _, ok := m.allowed[jwt.Role(role)]; !ok {
			m.logger.WithFields(logrus.Fields{
				"role": role,
				"path": ctx.Path(),
			}).Debug("role not allowed")
			return ctx.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Insufficient role"})
		}
		return ctx.Next()
	}
}
