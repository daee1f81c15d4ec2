package middleware

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/user-accounts/internal/api/metrics"
	"github.com/99minutos/user-accounts/internal/core/domain"
)

// userContextKey is where Auth stores the resolved *domain.User.
const userContextKey = "user"

// IdentityResolver maps a bearer token to an active account.
type IdentityResolver interface {
	CurrentUser(ctx context.Context, token string) (*domain.User, error)
}

// Auth extracts the bearer token, resolves it to an active user and injects
// that user into the context. Rejections are returned as domain errors so the
// central error handler renders them.
func Auth(resolver IdentityResolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, ok := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if !ok {
				metrics.TokenRejectionsTotal.WithLabelValues("missing").Inc()
				return fmt.Errorf("%w: missing bearer token", domain.ErrUnauthorized)
			}

			user, err := resolver.CurrentUser(c.Request().Context(), token)
			if err != nil {
				if reason := rejectionReason(err); reason != "" {
					metrics.TokenRejectionsTotal.WithLabelValues(reason).Inc()
				}
				return err
			}

			c.Set(userContextKey, user)
			return next(c)
		}
	}
}

// CurrentUser returns the user injected by Auth.
func CurrentUser(c echo.Context) (*domain.User, bool) {
	user, ok := c.Get(userContextKey).(*domain.User)
	return user, ok && user != nil
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrExpiredToken):
		return "expired"
	case errors.Is(err, domain.ErrInvalidToken):
		return "invalid"
	case errors.Is(err, domain.ErrInactive):
		return "inactive"
	case errors.Is(err, domain.ErrUnauthorized):
		return "unknown_subject"
	}
	return ""
}
