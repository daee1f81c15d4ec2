package handler

import (
	"fmt"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/user-accounts/internal/api/middleware"
	"github.com/99minutos/user-accounts/internal/core/domain"
)

// actor returns the user resolved by the Auth middleware. Its absence means
// the route was registered without Auth; fail closed with 401.
func actor(c echo.Context) (*domain.User, error) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return nil, fmt.Errorf("%w: missing authenticated user", domain.ErrUnauthorized)
	}
	return user, nil
}
