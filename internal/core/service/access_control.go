package service

import "github.com/99minutos/user-accounts/internal/core/domain"

// AccessControl is the RBAC gate in front of administrative operations.
type AccessControl struct{}

func NewAccessControl() *AccessControl {
	return &AccessControl{}
}

// RequireRole fails with domain.ErrForbidden unless user holds role. Admins
// do not implicitly satisfy other roles; callers gate on the role they need.
func (a *AccessControl) RequireRole(user *domain.User, role domain.Role) error {
	if user == nil || user.Role != role {
		return domain.ErrForbidden
	}
	return nil
}

// RequireSelfOrAdmin lets a user act on their own record and admins act on
// anyone's. It does not consult the store, so a refusal never reveals
// whether targetID exists.
func (a *AccessControl) RequireSelfOrAdmin(actor *domain.User, targetID string) error {
	if actor == nil {
		return domain.ErrForbidden
	}
	if actor.ID == targetID || actor.IsAdmin() {
		return nil
	}
	return domain.ErrForbidden
}
