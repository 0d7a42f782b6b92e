// Package security provides token validation for the API surface.
// User lifecycle and credential storage live in an external identity
// service; this package only validates what that service issued.
package security

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"stockd/internal/core/appctx"
)

// JWTConfig holds JWT validation configuration.
type JWTConfig struct {
	Secret         string
	Issuer         string
	AccessTokenTTL time.Duration
}

// DefaultJWTConfig returns default JWT configuration.
func DefaultJWTConfig(secret string) JWTConfig {
	return JWTConfig{
		Secret:         secret,
		Issuer:         "stockd",
		AccessTokenTTL: 15 * time.Minute,
	}
}

// Claims represents the token claims this service consumes.
type Claims struct {
	jwt.RegisteredClaims
	UserID         string `json:"uid"`
	Name           string `json:"name,omitempty"`
	PrivilegeLevel int    `json:"priv"`
}

// JWTService validates access tokens. Token generation is included for
// test fixtures and local development; production tokens come from the
// identity service sharing the same secret.
type JWTService struct {
	config JWTConfig
}

// NewJWTService creates a new JWT service.
func NewJWTService(config JWTConfig) *JWTService {
	return &JWTService{config: config}
}

// GenerateAccessToken generates a signed access token.
func (s *JWTService) GenerateAccessToken(userID, name string, privilegeLevel int) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(s.config.AccessTokenTTL)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		UserID:         userID,
		Name:           name,
		PrivilegeLevel: privilegeLevel,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.config.Secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}

	return tokenString, expiresAt, nil
}

// ValidateToken validates a token and returns the caller's user context.
func (s *JWTService) ValidateToken(tokenString string) (*appctx.UserContext, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.Secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	return &appctx.UserContext{
		UserID:         claims.UserID,
		Name:           claims.Name,
		PrivilegeLevel: claims.PrivilegeLevel,
	}, nil
}
