package mongo

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/99minutos/user-accounts/internal/core/domain"
)

const usersNS = "accounts.users"

func userDoc(id primitive.ObjectID, username string, active bool, role string) bson.D {
	ts := primitive.NewDateTimeFromTime(time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC))
	return bson.D{
		{Key: "_id", Value: id},
		{Key: "email", Value: username + "@example.com"},
		{Key: "username", Value: username},
		{Key: "password_hash", Value: "$2a$10$hash"},
		{Key: "is_active", Value: active},
		{Key: "role", Value: role},
		{Key: "created_at", Value: ts},
		{Key: "updated_at", Value: ts},
	}
}

func TestUserRepository_Find(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("found by username", func(mt *mtest.T) {
		repo := NewUserRepository(mt.DB)
		id := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, usersNS, mtest.FirstBatch, userDoc(id, "alice", true, "admin")))

		u, err := repo.FindByUsername(context.Background(), "alice")
		if err != nil {
			t.Fatalf("find: %v", err)
		}
		if u.ID != id.Hex() || u.Username != "alice" || u.Role != domain.RoleAdmin || !u.IsActive {
			t.Fatalf("unexpected user: %+v", u)
		}
		if u.PasswordHash != "$2a$10$hash" {
			t.Fatalf("expected hash to be loaded, got %q", u.PasswordHash)
		}
	})

	mt.Run("not found", func(mt *mtest.T) {
		repo := NewUserRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, usersNS, mtest.FirstBatch))

		if _, err := repo.FindByEmail(context.Background(), "ghost@example.com"); !errors.Is(err, domain.ErrUserNotFound) {
			t.Fatalf("expected ErrUserNotFound, got %v", err)
		}
	})

	mt.Run("malformed id", func(mt *mtest.T) {
		repo := NewUserRepository(mt.DB)

		if _, err := repo.FindByID(context.Background(), "not-an-object-id"); !errors.Is(err, domain.ErrUserNotFound) {
			t.Fatalf("expected ErrUserNotFound, got %v", err)
		}
	})

	mt.Run("store failure", func(mt *mtest.T) {
		repo := NewUserRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 2, Name: "BadValue", Message: "bad value"}))

		_, err := repo.FindByID(context.Background(), primitive.NewObjectID().Hex())
		if err == nil || errors.Is(err, domain.ErrUserNotFound) {
			t.Fatalf("expected raw store error, got %v", err)
		}
	})
}

func TestUserRepository_Insert(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	newUser := func() *domain.User {
		now := time.Now().UTC()
		return &domain.User{
			Email: "bob@example.com", Username: "bob", PasswordHash: "h",
			IsActive: true, Role: domain.RoleUser, CreatedAt: now, UpdatedAt: now,
		}
	}

	mt.Run("success", func(mt *mtest.T) {
		repo := NewUserRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		id, err := repo.Insert(context.Background(), newUser())
		if err != nil {
			t.Fatalf("insert: %v", err)
		}
		if _, err := primitive.ObjectIDFromHex(id); err != nil {
			t.Fatalf("expected object id hex, got %q", id)
		}
	})

	cases := []struct {
		name    string
		message string
		want    error
	}{
		{"duplicate username", `E11000 duplicate key error collection: accounts.users index: uniq_username dup key: { username: "bob" }`, domain.ErrDuplicateUsername},
		{"duplicate email", `E11000 duplicate key error collection: accounts.users index: uniq_email dup key: { email: "bob@example.com" }`, domain.ErrDuplicateEmail},
		{"unknown index", `E11000 duplicate key error collection: accounts.users index: legacy_idx dup key: { x: 1 }`, domain.ErrConstraintViolation},
	}
	for _, tc := range cases {
		mt.Run(tc.name, func(mt *mtest.T) {
			repo := NewUserRepository(mt.DB)
			mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{Index: 0, Code: 11000, Message: tc.message}))

			_, err := repo.Insert(context.Background(), newUser())
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestUserRepository_UpdateFields(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	email := "new@example.com"

	mt.Run("matched", func(mt *mtest.T) {
		repo := NewUserRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 1},
			bson.E{Key: "nModified", Value: 1},
		))

		n, err := repo.UpdateFields(context.Background(), primitive.NewObjectID().Hex(), domain.UserUpdate{Email: &email}, time.Now())
		if err != nil || n != 1 {
			t.Fatalf("expected 1 match, got %d (%v)", n, err)
		}
	})

	mt.Run("no match", func(mt *mtest.T) {
		repo := NewUserRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 0},
			bson.E{Key: "nModified", Value: 0},
		))

		n, err := repo.UpdateFields(context.Background(), primitive.NewObjectID().Hex(), domain.UserUpdate{Email: &email}, time.Now())
		if err != nil || n != 0 {
			t.Fatalf("expected 0 matches, got %d (%v)", n, err)
		}
	})

	mt.Run("duplicate email", func(mt *mtest.T) {
		repo := NewUserRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index: 0, Code: 11000, Message: `E11000 duplicate key error collection: accounts.users index: uniq_email dup key: { email: "new@example.com" }`,
		}))

		_, err := repo.UpdateFields(context.Background(), primitive.NewObjectID().Hex(), domain.UserUpdate{Email: &email}, time.Now())
		if !errors.Is(err, domain.ErrDuplicateEmail) {
			t.Fatalf("expected ErrDuplicateEmail, got %v", err)
		}
	})

	mt.Run("malformed id", func(mt *mtest.T) {
		repo := NewUserRepository(mt.DB)

		n, err := repo.UpdateFields(context.Background(), "zzz", domain.UserUpdate{Email: &email}, time.Now())
		if err != nil || n != 0 {
			t.Fatalf("expected silent miss, got %d (%v)", n, err)
		}
	})
}

func TestUserRepository_Delete(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("deleted", func(mt *mtest.T) {
		repo := NewUserRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}))

		n, err := repo.Delete(context.Background(), primitive.NewObjectID().Hex())
		if err != nil || n != 1 {
			t.Fatalf("expected 1 deletion, got %d (%v)", n, err)
		}
	})

	mt.Run("missing", func(mt *mtest.T) {
		repo := NewUserRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}))

		n, err := repo.Delete(context.Background(), primitive.NewObjectID().Hex())
		if err != nil || n != 0 {
			t.Fatalf("expected 0 deletions, got %d (%v)", n, err)
		}
	})
}

func TestUserRepository_ListPage(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("decodes page", func(mt *mtest.T) {
		repo := NewUserRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, usersNS, mtest.FirstBatch,
			userDoc(primitive.NewObjectID(), "alice", true, "admin"),
			userDoc(primitive.NewObjectID(), "bob", false, "guest"),
		))

		users, err := repo.ListPage(context.Background(), 0, 10)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(users) != 2 || users[1].Username != "bob" || users[1].IsActive || users[1].Role != domain.RoleGuest {
			t.Fatalf("unexpected page: %+v", users)
		}
	})
}

func TestUserRepository_EnsureIndexes(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("creates", func(mt *mtest.T) {
		repo := NewUserRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		if err := repo.EnsureIndexes(context.Background()); err != nil {
			t.Fatalf("ensure indexes: %v", err)
		}
	})

	mt.Run("fails", func(mt *mtest.T) {
		repo := NewUserRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 11000, Name: "DuplicateKey", Message: "E11000 duplicate key error"}))

		if err := repo.EnsureIndexes(context.Background()); err == nil {
			t.Fatalf("expected index creation error")
		}
	})
}
