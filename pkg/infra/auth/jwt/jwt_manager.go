package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/NeuralTrust/CareGuard/pkg/config"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("expired token")
)

type Role string

const (
	RoleResponder Role = "responder"
	RoleAdmin     Role = "admin"
)

type (
	Manager interface {
		CreateToken(responderID string, role Role) (string, error)
		// ValidateToken checks signature and expiry and returns the claims.
		ValidateToken(tokenString string) (*Claims, error)
	}
	manager struct {
		config *config.ServerConfig
		now    func() time.Time
	}
)

func NewJwtManager(config *config.ServerConfig) Manager {
	return &manager{
		config: config,
		now:    time.Now,
	}
}

// Claims identify the responder acting on alerts. ResponderID is what ends
// up in assigned_to and escalated_by.
type Claims struct {
	ResponderID string `json:"responder_id"`
	Role        Role   `json:"role,omitempty"`
	jwt.RegisteredClaims
}

func (m *manager) CreateToken(responderID string, role Role) (string, error) {
	if responderID == "" {
		return "", errors.New("responder id is required")
	}
	now := m.now()
	claims := &Claims{
		ResponderID: responderID,
		Role:        role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  responderID,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if m.config.TokenTTL > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(m.config.TokenTTL))
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(m.config.SecretKey))
}

func (m *manager) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(
		tokenString,
		&Claims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, ErrInvalidToken
			}
			return []byte(m.config.SecretKey), nil
		},
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.ResponderID == "" {
		claims.ResponderID = claims.Subject
	}
	if claims.ResponderID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
