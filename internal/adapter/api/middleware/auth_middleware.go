package middleware

import (
	"context"
	"strings"

	"github.com/labstack/echo/v4"

	"casepay/internal/infrastructure/firebase"
	"casepay/pkg/errors"
	"casepay/pkg/response"
)

const (
	ContextUID  = "uid"
	ContextRole = "role"
)

type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (*firebase.VerifiedToken, error)
}

type AuthMiddleware struct {
	verifier TokenVerifier
}

func NewAuthMiddleware(verifier TokenVerifier) *AuthMiddleware {
	return &AuthMiddleware{
		verifier: verifier,
	}
}

func (m *AuthMiddleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		// Get the Authorization header
		authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
		if authHeader == "" {
			return response.Error(c, errors.Unauthorized("Authorization header is required", nil))
		}

		// Check if the Authorization header has the right format
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			return response.Error(c, errors.Unauthorized("Invalid authorization format", nil))
		}

		// Verify the token
		token, err := m.verifier.VerifyToken(c.Request().Context(), parts[1])
		if err != nil {
			return response.Error(c, errors.Unauthorized("Invalid or expired token", err))
		}

		// Add the user ID and any role claim to the context
		c.Set(ContextUID, token.UID)
		if token.Role != "" {
			c.Set(ContextRole, token.Role)
		}

		// Call the next handler
		return next(c)
	}
}
