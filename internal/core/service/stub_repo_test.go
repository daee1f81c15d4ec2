package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/99minutos/user-accounts/internal/core/domain"
)

// stubUserRepo is an in-memory UserRepository enforcing the same unique
// constraints as the Mongo indexes.
type stubUserRepo struct {
	mu     sync.Mutex
	byID   map[string]*domain.User
	nextID int

	findErr      error // returned by every finder when set
	insertErr    error // returned by Insert when set
	beforeInsert func()
	// unattributedConflicts makes constraint violations come back as
	// domain.ErrConstraintViolation, like a driver error without index name.
	unattributedConflicts bool

	findByIDCalls int
	lastSkip      int64
	lastLimit     int64
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{byID: make(map[string]*domain.User)}
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}

// put stores u directly, bypassing constraint checks.
func (r *stubUserRepo) put(u *domain.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[u.ID] = cloneUser(u)
}

func (r *stubUserRepo) get(id string) *domain.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneUser(r.byID[id])
}

func (r *stubUserRepo) conflict(username, email, selfID string) error {
	for id, u := range r.byID {
		if id == selfID {
			continue
		}
		if username != "" && u.Username == username {
			if r.unattributedConflicts {
				return domain.ErrConstraintViolation
			}
			return domain.ErrDuplicateUsername
		}
		if email != "" && u.Email == email {
			if r.unattributedConflicts {
				return domain.ErrConstraintViolation
			}
			return domain.ErrDuplicateEmail
		}
	}
	return nil
}

func (r *stubUserRepo) findBy(match func(*domain.User) bool) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	for _, u := range r.byID {
		if match(u) {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	return r.findBy(func(u *domain.User) bool { return u.Username == username })
}

func (r *stubUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	return r.findBy(func(u *domain.User) bool { return u.Email == email })
}

func (r *stubUserRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	r.findByIDCalls++
	r.mu.Unlock()
	return r.findBy(func(u *domain.User) bool { return u.ID == id })
}

func (r *stubUserRepo) Insert(_ context.Context, user *domain.User) (string, error) {
	if r.beforeInsert != nil {
		r.beforeInsert()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.insertErr != nil {
		return "", r.insertErr
	}
	if err := r.conflict(user.Username, user.Email, ""); err != nil {
		return "", err
	}
	r.nextID++
	id := fmt.Sprintf("id-%d", r.nextID)
	c := cloneUser(user)
	c.ID = id
	r.byID[id] = c
	return id, nil
}

func (r *stubUserRepo) UpdateFields(_ context.Context, id string, upd domain.UserUpdate, updatedAt time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return 0, nil
	}
	var username, email string
	if upd.Username != nil {
		username = *upd.Username
	}
	if upd.Email != nil {
		email = *upd.Email
	}
	if err := r.conflict(username, email, id); err != nil {
		return 0, err
	}
	if upd.Username != nil {
		u.Username = *upd.Username
	}
	if upd.Email != nil {
		u.Email = *upd.Email
	}
	if upd.PasswordHash != nil {
		u.PasswordHash = *upd.PasswordHash
	}
	if upd.IsActive != nil {
		u.IsActive = *upd.IsActive
	}
	if upd.Role != nil {
		u.Role = *upd.Role
	}
	u.UpdatedAt = updatedAt
	return 1, nil
}

func (r *stubUserRepo) Delete(_ context.Context, id string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return 0, nil
	}
	delete(r.byID, id)
	return 1, nil
}

func (r *stubUserRepo) ListPage(_ context.Context, skip, limit int64) ([]*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastSkip, r.lastLimit = skip, limit
	if r.findErr != nil {
		return nil, r.findErr
	}
	ids := make([]string, 0, len(r.byID))
	for id := range r.byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var out []*domain.User
	for i, id := range ids {
		if int64(i) < skip {
			continue
		}
		if int64(len(out)) >= limit {
			break
		}
		out = append(out, cloneUser(r.byID[id]))
	}
	return out, nil
}

// recordingSink captures audit events synchronously.
type recordingSink struct {
	mu     sync.Mutex
	events []domain.AuditEvent
}

func (s *recordingSink) Enqueue(e domain.AuditEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
}

func (s *recordingSink) actions() []domain.AuditAction {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.AuditAction, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.Action)
	}
	return out
}
