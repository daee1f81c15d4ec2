package domain

import "errors"

var (
	ErrDuplicateUsername   = errors.New("username already in use")
	ErrDuplicateEmail      = errors.New("email already in use")
	ErrConstraintViolation = errors.New("unique constraint violation")
	ErrInvalidCredentials  = errors.New("invalid username or password")
	ErrUnauthorized        = errors.New("not authenticated")
	ErrInactive            = errors.New("inactive user")
	ErrForbidden           = errors.New("access forbidden")
	ErrUserNotFound        = errors.New("user not found")
	ErrInvalidRole         = errors.New("invalid role")
	ErrTooManyAttempts     = errors.New("too many failed login attempts")
	ErrPasswordTooLong     = errors.New("password must be at most 72 bytes")
)

// Token verification failures. Both collapse into ErrUnauthorized at the
// HTTP boundary.
var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
)
