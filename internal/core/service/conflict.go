package service

import (
	"context"

	"github.com/99minutos/user-accounts/internal/core/domain"
	"github.com/99minutos/user-accounts/internal/core/ports"
)

// resolveConflict names the field behind a unique index violation the store
// could not attribute. Username is checked before email, matching the order
// used by registration. selfID excludes the record being updated.
func resolveConflict(ctx context.Context, repo ports.UserRepository, username, email *string, selfID string) error {
	if username != nil {
		if u, err := repo.FindByUsername(ctx, *username); err == nil && u.ID != selfID {
			return domain.ErrDuplicateUsername
		}
	}
	if email != nil {
		if u, err := repo.FindByEmail(ctx, *email); err == nil && u.ID != selfID {
			return domain.ErrDuplicateEmail
		}
	}
	return domain.ErrConstraintViolation
}
