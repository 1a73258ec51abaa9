package middleware

import (
	"errors"
	"strings"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/NeuralTrust/CareGuard/pkg/common"
	"github.com/NeuralTrust/CareGuard/pkg/infra/auth/jwt"
)

const (
	authorizationHeader = "Authorization"
	bearerPrefix        = "Bearer "
	tokenQueryParam     = "access_token"
)

type authMiddleware struct {
	logger     *logrus.Logger
	jwtManager jwt.Manager
}

// NewAuthMiddleware validates the bearer token and stores the responder
// identity and role for the handlers.
func NewAuthMiddleware(logger *logrus.Logger, jwtManager jwt.Manager) Middleware {
	return &authMiddleware{
		logger:     logger,
		jwtManager: jwtManager,
	}
}

func (m *authMiddleware) Middleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		tokenString, reason := m.token(ctx)
		if reason != "" {
			m.logger.WithField("path", ctx.Path()).Debug(reason)
			return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": reason})
		}

		claims, err := m.jwtManager.ValidateToken(tokenString)
		if err != nil {
			m.logger.WithError(err).Debug("invalid token")
			message := "Invalid token"
			if errors.Is(err, jwt.ErrExpiredToken) {
				message = "Token expired"
			}
			return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": message})
		}

		ctx.Locals(string(common.ResponderContextKey), claims.ResponderID)
		ctx.Locals(string(common.RoleContextKey), string(claims.Role))
		return ctx.Next()
	}
}

// token reads the bearer header, or returns why it could not. Browsers
// cannot set headers on a websocket upgrade, so upgrades may pass the token
// as a query parameter instead.
func (m *authMiddleware) token(ctx *fiber.Ctx) (token string, reason string) {
	authHeader := ctx.Get(authorizationHeader)
	if authHeader == "" {
		if websocket.IsWebSocketUpgrade(ctx) {
			if t := ctx.Query(tokenQueryParam); t != "" {
				return t, ""
			}
		}
		return "", "Authorization required"
	}
	if !strings.HasPrefix(authHeader, bearerPrefix) {
		return "", "Invalid authorization format"
	}
	tokenString := strings.TrimPrefix(authHeader, bearerPrefix)
	if tokenString == "" {
		return "", "Empty token provided"
	}
	return tokenString, ""
}
