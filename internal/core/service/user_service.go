package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/99minutos/user-accounts/internal/core/domain"
	"github.com/99minutos/user-accounts/internal/core/ports"
)

const (
	defaultPageLimit = 100
	maxPageLimit     = 100
)

// UserService implements the administrative user operations on top of
// AccessControl.
type UserService struct {
	repo   ports.UserRepository
	hasher ports.PasswordHasher
	access *AccessControl
	audit  ports.AuditSink
	logger zerolog.Logger
	now    func() time.Time
}

// NewUserService wires the service. audit may be nil.
func NewUserService(
	repo ports.UserRepository,
	hasher ports.PasswordHasher,
	access *AccessControl,
	audit ports.AuditSink,
	logger zerolog.Logger,
) *UserService {
	return &UserService{
		repo:   repo,
		hasher: hasher,
		access: access,
		audit:  audit,
		logger: logger,
		now:    time.Now,
	}
}

// ListUsers returns one page of accounts. Admin only.
func (s *UserService) ListUsers(ctx context.Context, actor *domain.User, skip, limit int64) ([]*domain.PublicUser, error) {
	if err := s.access.RequireRole(actor, domain.RoleAdmin); err != nil {
		return nil, err
	}

	if skip < 0 {
		skip = 0
	}
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	users, err := s.repo.ListPage(ctx, skip, limit)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	out := make([]*domain.PublicUser, 0, len(users))
	for _, u := range users {
		out = append(out, u.Public())
	}
	return out, nil
}

// UpdateUser applies update to targetID. The caller must be the target or an
// admin, and that is decided before the target is looked up. Role and
// activation changes are reserved to admins even on one's own record.
func (s *UserService) UpdateUser(ctx context.Context, actor *domain.User, targetID string, update domain.UserUpdate) (*domain.PublicUser, error) {
	if err := s.access.RequireSelfOrAdmin(actor, targetID); err != nil {
		return nil, err
	}
	if update.TouchesPrivileges() && !actor.IsAdmin() {
		return nil, domain.ErrForbidden
	}
	if update.Role != nil && !update.Role.Valid() {
		return nil, domain.ErrInvalidRole
	}

	if _, err := s.repo.FindByID(ctx, targetID); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("update user: %w", err)
	}

	if update.Password != nil {
		hash, err := s.hasher.Hash(*update.Password)
		if err != nil {
			return nil, fmt.Errorf("update user: %w", err)
		}
		update.PasswordHash = &hash
		update.Password = nil
	}

	matched, err := s.repo.UpdateFields(ctx, targetID, update, s.now().UTC())
	if err != nil {
		if errors.Is(err, domain.ErrConstraintViolation) {
			return nil, resolveConflict(ctx, s.repo, update.Username, update.Email, targetID)
		}
		if errors.Is(err, domain.ErrDuplicateUsername) || errors.Is(err, domain.ErrDuplicateEmail) {
			return nil, err
		}
		return nil, fmt.Errorf("update user: %w", err)
	}
	if matched == 0 {
		// deleted between the lookup and the write
		return nil, domain.ErrUserNotFound
	}

	updated, err := s.repo.FindByID(ctx, targetID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("update user: %w", err)
	}

	s.emit(domain.AuditUserUpdated, actor.ID, updated)
	s.logger.Info().Str("actor_id", actor.ID).Str("user_id", targetID).Msg("user updated")

	return updated.Public(), nil
}

// DeleteUser hard-deletes targetID. Admin only.
func (s *UserService) DeleteUser(ctx context.Context, actor *domain.User, targetID string) error {
	if err := s.access.RequireRole(actor, domain.RoleAdmin); err != nil {
		return err
	}

	deleted, err := s.repo.Delete(ctx, targetID)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if deleted == 0 {
		return domain.ErrUserNotFound
	}

	s.emit(domain.AuditUserDeleted, actor.ID, &domain.User{ID: targetID})
	s.logger.Info().Str("actor_id", actor.ID).Str("user_id", targetID).Msg("user deleted")
	return nil
}

func (s *UserService) emit(action domain.AuditAction, actorID string, target *domain.User) {
	if s.audit == nil {
		return
	}
	s.audit.Enqueue(domain.AuditEvent{
		Action:   action,
		ActorID:  actorID,
		TargetID: target.ID,
		Username: target.Username,
		At:       s.now().UTC(),
	})
}
