package middleware

import (
	"fmt"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/user-accounts/internal/core/domain"
)

// RoleGate decides whether a user holds a role.
type RoleGate interface {
	RequireRole(user *domain.User, role domain.Role) error
}

// RequireRole enforces role-based access control on a route group. It must
// run after Auth.
func RequireRole(gate RoleGate, role domain.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user, ok := CurrentUser(c)
			if !ok {
				return fmt.Errorf("%w: no authenticated user", domain.ErrUnauthorized)
			}
			if err := gate.RequireRole(user, role); err != nil {
				return err
			}
			return next(c)
		}
	}
}
