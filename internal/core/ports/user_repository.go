package ports

import (
	"context"
	"time"

	"github.com/99minutos/user-accounts/internal/core/domain"
)

// UserRepository is the persistence contract for user accounts. Finders
// return domain.ErrUserNotFound when no document matches. Insert and
// UpdateFields surface unique index violations as domain.ErrDuplicateUsername,
// domain.ErrDuplicateEmail or, when the index cannot be identified,
// domain.ErrConstraintViolation.
type UserRepository interface {
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	Insert(ctx context.Context, user *domain.User) (string, error)
	// UpdateFields applies the non-nil fields of update and returns the number
	// of matched documents.
	UpdateFields(ctx context.Context, id string, update domain.UserUpdate, updatedAt time.Time) (int64, error)
	// Delete returns the number of deleted documents.
	Delete(ctx context.Context, id string) (int64, error)
	ListPage(ctx context.Context, skip, limit int64) ([]*domain.User, error)
}
