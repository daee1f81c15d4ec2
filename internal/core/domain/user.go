package domain

import "time"

// Role is the fixed authorization level carried by every account.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
	RoleGuest Role = "guest"
)

// Valid reports whether r is one of the defined roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleUser, RoleGuest:
		return true
	}
	return false
}

// User models a registered account. PasswordHash never leaves the service;
// callers receive a PublicUser instead.
type User struct {
	ID           string
	Email        string
	Username     string
	PasswordHash string
	IsActive     bool
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// PublicUser is the projection of a User that is safe to return to clients.
type PublicUser struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	IsActive  bool      `json:"is_active"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Public drops the password hash.
func (u *User) Public() *PublicUser {
	if u == nil {
		return nil
	}
	return &PublicUser{
		ID:        u.ID,
		Email:     u.Email,
		Username:  u.Username,
		IsActive:  u.IsActive,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// UserUpdate carries a partial modification. Nil fields are left untouched.
// Password holds plaintext on the way in; the service replaces it with
// PasswordHash before the update reaches the store.
type UserUpdate struct {
	Email        *string
	Username     *string
	Password     *string
	PasswordHash *string
	IsActive     *bool
	Role         *Role
}

// TouchesPrivileges reports whether the update changes role or activation,
// which only administrators may do.
func (u UserUpdate) TouchesPrivileges() bool {
	return u.Role != nil || u.IsActive != nil
}

// AccessToken is a signed bearer credential. It is never persisted.
type AccessToken struct {
	Token     string    `json:"access_token"`
	TokenType string    `json:"token_type"`
	Subject   string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
}
