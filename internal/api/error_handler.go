package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/99minutos/user-accounts/internal/api/metrics"
	"github.com/99minutos/user-accounts/internal/core/domain"
)

// errorResponse is the canonical error envelope for all API errors.
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type apiError struct {
	code    int
	kind    string
	message string
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps known domain errors to their appropriate HTTP status codes.
//   - Logs unexpected errors internally without leaking details to the client.
//   - Renders a consistent JSON envelope: {"error": "<kind>", "message": "<text>"}.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		e := resolveError(err, log, c)
		if e.code == http.StatusUnauthorized {
			c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
		}
		if e.code == http.StatusForbidden {
			metrics.AuthorizationDeniedTotal.WithLabelValues(c.Path()).Inc()
		}

		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(e.code)
			return
		}
		_ = c.JSON(e.code, errorResponse{Error: e.kind, Message: e.message})
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) apiError {
	// Echo's own errors (bind failures, validation, 404 from router, rate limiter).
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return apiError{code: he.Code, kind: kindForStatus(he.Code), message: fmt.Sprintf("%v", he.Message)}
	}

	// Unauthorized wraps the token failure cause, so it is matched first.
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		return apiError{http.StatusUnauthorized, "unauthorized", "could not validate credentials"}
	case errors.Is(err, domain.ErrInvalidCredentials):
		return apiError{http.StatusUnauthorized, "invalid_credentials", "incorrect username or password"}
	case errors.Is(err, domain.ErrDuplicateUsername):
		return apiError{http.StatusConflict, "duplicate_username", "username already registered"}
	case errors.Is(err, domain.ErrDuplicateEmail):
		return apiError{http.StatusConflict, "duplicate_email", "email already registered"}
	case errors.Is(err, domain.ErrConstraintViolation):
		return apiError{http.StatusConflict, "conflict", "account conflicts with an existing one"}
	case errors.Is(err, domain.ErrInactive):
		return apiError{http.StatusBadRequest, "inactive", "inactive user"}
	case errors.Is(err, domain.ErrForbidden):
		return apiError{http.StatusForbidden, "forbidden", "not enough permissions"}
	case errors.Is(err, domain.ErrUserNotFound):
		return apiError{http.StatusNotFound, "not_found", "user not found"}
	case errors.Is(err, domain.ErrInvalidRole):
		return apiError{http.StatusBadRequest, "invalid_role", "role must be one of: admin, user, guest"}
	case errors.Is(err, domain.ErrPasswordTooLong):
		return apiError{http.StatusUnprocessableEntity, "validation", "password must be at most 72 bytes"}
	case errors.Is(err, domain.ErrTooManyAttempts):
		return apiError{http.StatusTooManyRequests, "too_many_attempts", "too many failed login attempts, try again later"}
	}

	// Unexpected error: log the real cause, return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return apiError{http.StatusInternalServerError, "internal", "internal server error"}
}

// kindForStatus derives a snake_case error kind from an HTTP status, with
// 422 reserved for request validation.
func kindForStatus(code int) string {
	if code == http.StatusUnprocessableEntity {
		return "validation"
	}
	text := http.StatusText(code)
	if text == "" {
		return "error"
	}
	return strings.ReplaceAll(strings.ToLower(text), " ", "_")
}
