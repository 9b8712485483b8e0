package middleware

import (
	stderrors "errors"

	"github.com/labstack/echo/v4"

	"casepay/internal/domain/entity"
	"casepay/internal/domain/repository"
	"casepay/pkg/errors"
	"casepay/pkg/logger"
	"casepay/pkg/response"
)

// RoleMiddleware resolves the caller's role. The token's role claim wins;
// otherwise the portal's user directory is consulted. Callers with neither
// are payers.
type RoleMiddleware struct {
	userRepo repository.UserRepository
}

func NewRoleMiddleware(userRepo repository.UserRepository) *RoleMiddleware {
	return &RoleMiddleware{
		userRepo: userRepo,
	}
}

// LoadRole puts the caller's role on the context without enforcing anything.
func (m *RoleMiddleware) LoadRole(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := m.resolve(c); err != nil {
			return response.Error(c, err)
		}
		return next(c)
	}
}

func (m *RoleMiddleware) RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, err := m.resolve(c)
			if err != nil {
				return response.Error(c, err)
			}

			for _, allowed := range roles {
				if role == allowed {
					return next(c)
				}
			}

			logger.Warn("role check failed", "uid", c.Get(ContextUID), "role", role, "path", c.Path())
			return response.Error(c, errors.Forbidden("Insufficient privileges", nil))
		}
	}
}

func (m *RoleMiddleware) AdminOnly(next echo.HandlerFunc) echo.HandlerFunc {
	return m.RequireRole(entity.RoleAdmin)(next)
}

func (m *RoleMiddleware) resolve(c echo.Context) (string, error) {
	// A role claim on the token wins
	if role, ok := c.Get(ContextRole).(string); ok && role != "" {
		return role, nil
	}

	// Get user ID from context
	uid, ok := c.Get(ContextUID).(string)
	if !ok || uid == "" {
		return "", errors.Unauthorized("Authentication required", nil)
	}

	// Otherwise look the user up
	role := entity.RolePayer
	if m.userRepo != nil {
		user, err := m.userRepo.GetByID(c.Request().Context(), uid)
		switch {
		case err == nil && user.Role != "":
			role = user.Role
		case err != nil && !stderrors.Is(err, repository.ErrNotFound):
			return "", errors.Internal("Failed to verify user role", err)
		}
	}

	c.Set(ContextRole, role)
	return role, nil
}
