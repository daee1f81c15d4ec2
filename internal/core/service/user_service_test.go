package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/99minutos/user-accounts/internal/core/domain"
)

type userFixture struct {
	repo   *stubUserRepo
	hasher *BcryptHasher
	sink   *recordingSink
	svc    *UserService
	admin  *domain.User
	alice  *domain.User
	bob    *domain.User
}

func newUserFixture(t *testing.T) *userFixture {
	t.Helper()
	f := &userFixture{
		repo:   newStubUserRepo(),
		hasher: NewBcryptHasher(bcrypt.MinCost),
		sink:   &recordingSink{},
	}
	f.svc = NewUserService(f.repo, f.hasher, NewAccessControl(), f.sink, zerolog.Nop())

	created := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	mk := func(id, name string, role domain.Role) *domain.User {
		hash, err := f.hasher.Hash(name + "-password")
		require.NoError(t, err)
		u := &domain.User{
			ID: id, Username: name, Email: name + "@example.com", PasswordHash: hash,
			IsActive: true, Role: role, CreatedAt: created, UpdatedAt: created,
		}
		f.repo.put(u)
		return cloneUser(u)
	}
	f.admin = mk("id-admin", "root", domain.RoleAdmin)
	f.alice = mk("id-alice", "alice", domain.RoleUser)
	f.bob = mk("id-bob", "bob", domain.RoleGuest)
	return f
}

func strPtr(s string) *string { return &s }

func TestUserService_ListUsers(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()

	_, err := f.svc.ListUsers(ctx, f.alice, 0, 10)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = f.svc.ListUsers(ctx, f.bob, 0, 10)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	users, err := f.svc.ListUsers(ctx, f.admin, 0, 10)
	require.NoError(t, err)
	assert.Len(t, users, 3)

	page, err := f.svc.ListUsers(ctx, f.admin, 1, 1)
	require.NoError(t, err)
	assert.Len(t, page, 1)
}

func TestUserService_ListUsers_ClampsPaging(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()

	cases := []struct {
		skip, limit         int64
		wantSkip, wantLimit int64
	}{
		{0, 0, 0, 100},
		{-5, 20, 0, 20},
		{10, 1000, 10, 100},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("skip=%d,limit=%d", tc.skip, tc.limit), func(t *testing.T) {
			_, err := f.svc.ListUsers(ctx, f.admin, tc.skip, tc.limit)
			require.NoError(t, err)
			assert.Equal(t, tc.wantSkip, f.repo.lastSkip)
			assert.Equal(t, tc.wantLimit, f.repo.lastLimit)
		})
	}
}

func TestUserService_UpdateUser_Self(t *testing.T) {
	f := newUserFixture(t)

	before := f.repo.get(f.alice.ID).UpdatedAt
	updated, err := f.svc.UpdateUser(context.Background(), f.alice, f.alice.ID, domain.UserUpdate{
		Email: strPtr("alice@new.example.com"),
	})
	require.NoError(t, err)
	assert.Equal(t, "alice@new.example.com", updated.Email)
	assert.True(t, updated.UpdatedAt.After(before), "updated_at must advance")
	assert.Equal(t, []domain.AuditAction{domain.AuditUserUpdated}, f.sink.actions())
}

func TestUserService_UpdateUser_OtherWithoutAdmin(t *testing.T) {
	f := newUserFixture(t)

	_, err := f.svc.UpdateUser(context.Background(), f.alice, f.bob.ID, domain.UserUpdate{Email: strPtr("x@example.com")})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	// Unknown ids get the same answer, and the store is never consulted.
	_, err = f.svc.UpdateUser(context.Background(), f.alice, "id-missing", domain.UserUpdate{Email: strPtr("x@example.com")})
	assert.ErrorIs(t, err, domain.ErrForbidden)
	assert.Zero(t, f.repo.findByIDCalls)
}

func TestUserService_UpdateUser_AdminOnOther(t *testing.T) {
	f := newUserFixture(t)
	role := domain.RoleAdmin
	inactive := false

	updated, err := f.svc.UpdateUser(context.Background(), f.admin, f.bob.ID, domain.UserUpdate{
		Role: &role, IsActive: &inactive,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, updated.Role)
	assert.False(t, updated.IsActive)
}

func TestUserService_UpdateUser_AdminMissingTarget(t *testing.T) {
	f := newUserFixture(t)

	_, err := f.svc.UpdateUser(context.Background(), f.admin, "id-missing", domain.UserUpdate{Email: strPtr("x@example.com")})
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestUserService_UpdateUser_NoSelfPromotion(t *testing.T) {
	f := newUserFixture(t)
	role := domain.RoleAdmin
	active := true

	_, err := f.svc.UpdateUser(context.Background(), f.alice, f.alice.ID, domain.UserUpdate{Role: &role})
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = f.svc.UpdateUser(context.Background(), f.alice, f.alice.ID, domain.UserUpdate{IsActive: &active})
	assert.ErrorIs(t, err, domain.ErrForbidden)
	assert.Equal(t, domain.RoleUser, f.repo.get(f.alice.ID).Role)
}

func TestUserService_UpdateUser_InvalidRole(t *testing.T) {
	f := newUserFixture(t)
	role := domain.Role("owner")

	_, err := f.svc.UpdateUser(context.Background(), f.admin, f.alice.ID, domain.UserUpdate{Role: &role})
	assert.ErrorIs(t, err, domain.ErrInvalidRole)
}

func TestUserService_UpdateUser_PasswordIsRehashed(t *testing.T) {
	f := newUserFixture(t)

	_, err := f.svc.UpdateUser(context.Background(), f.alice, f.alice.ID, domain.UserUpdate{Password: strPtr("brand-new-pw")})
	require.NoError(t, err)

	stored := f.repo.get(f.alice.ID)
	assert.NotEqual(t, "brand-new-pw", stored.PasswordHash)
	assert.True(t, f.hasher.Verify("brand-new-pw", stored.PasswordHash))
	assert.False(t, f.hasher.Verify("alice-password", stored.PasswordHash))
}

func TestUserService_UpdateUser_PasswordOverByteLimit(t *testing.T) {
	f := newUserFixture(t)
	before := f.repo.get(f.alice.ID).PasswordHash

	_, err := f.svc.UpdateUser(context.Background(), f.alice, f.alice.ID, domain.UserUpdate{Password: strPtr(strings.Repeat("é", 40))})
	require.ErrorIs(t, err, domain.ErrPasswordTooLong)
	assert.Equal(t, before, f.repo.get(f.alice.ID).PasswordHash)
}

func TestUserService_UpdateUser_Duplicates(t *testing.T) {
	f := newUserFixture(t)

	_, err := f.svc.UpdateUser(context.Background(), f.alice, f.alice.ID, domain.UserUpdate{Username: strPtr("bob")})
	assert.ErrorIs(t, err, domain.ErrDuplicateUsername)

	f.repo.unattributedConflicts = true
	_, err = f.svc.UpdateUser(context.Background(), f.alice, f.alice.ID, domain.UserUpdate{Email: strPtr("bob@example.com")})
	assert.ErrorIs(t, err, domain.ErrDuplicateEmail)

	// keeping one's own username is not a conflict
	_, err = f.svc.UpdateUser(context.Background(), f.alice, f.alice.ID, domain.UserUpdate{Username: strPtr("alice")})
	assert.NoError(t, err)
}

func TestUserService_UpdateUser_StoreFailure(t *testing.T) {
	f := newUserFixture(t)
	f.repo.findErr = errors.New("socket closed")

	_, err := f.svc.UpdateUser(context.Background(), f.admin, f.alice.ID, domain.UserUpdate{Email: strPtr("x@example.com")})
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrUserNotFound)
}

func TestUserService_DeleteUser(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()

	assert.ErrorIs(t, f.svc.DeleteUser(ctx, f.alice, f.bob.ID), domain.ErrForbidden)
	assert.ErrorIs(t, f.svc.DeleteUser(ctx, f.alice, f.alice.ID), domain.ErrForbidden)
	assert.NotNil(t, f.repo.get(f.bob.ID))

	require.NoError(t, f.svc.DeleteUser(ctx, f.admin, f.bob.ID))
	assert.Nil(t, f.repo.get(f.bob.ID))

	assert.ErrorIs(t, f.svc.DeleteUser(ctx, f.admin, f.bob.ID), domain.ErrUserNotFound)
	assert.Equal(t, []domain.AuditAction{domain.AuditUserDeleted}, f.sink.actions())
}
