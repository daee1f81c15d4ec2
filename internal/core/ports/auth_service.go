package ports

import (
	"context"
	"time"

	"github.com/99minutos/user-accounts/internal/core/domain"
)

// RegisterInput is the DTO passed from the transport layer to AuthService.
type RegisterInput struct {
	Email    string
	Username string
	Password string
	Role     domain.Role // empty means domain.RoleUser
}

// AuthService covers registration, login and bearer identity resolution.
type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*domain.PublicUser, error)
	Login(ctx context.Context, username, password string) (*domain.AccessToken, error)
	CurrentUser(ctx context.Context, token string) (*domain.User, error)
}

// PasswordHasher hashes and verifies secrets.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, hash string) bool
}

// TokenIssuer signs and verifies self-contained bearer tokens.
type TokenIssuer interface {
	Issue(subject string, ttl time.Duration) (*domain.AccessToken, error)
	Verify(token string) (string, error)
}

// LoginThrottle limits repeated failed logins for a username.
type LoginThrottle interface {
	Blocked(ctx context.Context, username string) (bool, error)
	RecordFailure(ctx context.Context, username string) error
	Reset(ctx context.Context, username string) error
}
