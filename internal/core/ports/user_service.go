package ports

import (
	"context"

	"github.com/99minutos/user-accounts/internal/core/domain"
)

// UserService exposes the administrative operations. The acting user is
// always the identity resolved from the caller's bearer token.
type UserService interface {
	ListUsers(ctx context.Context, actor *domain.User, skip, limit int64) ([]*domain.PublicUser, error)
	UpdateUser(ctx context.Context, actor *domain.User, targetID string, update domain.UserUpdate) (*domain.PublicUser, error)
	DeleteUser(ctx context.Context, actor *domain.User, targetID string) error
}
