package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/99minutos/user-accounts/internal/core/domain"
	"github.com/99minutos/user-accounts/internal/core/ports"
)

// DefaultTokenTTL is the lifetime of session tokens when none is configured.
const DefaultTokenTTL = 30 * time.Minute

// AuthService implements registration, login and bearer identity resolution.
type AuthService struct {
	repo     ports.UserRepository
	hasher   ports.PasswordHasher
	tokens   ports.TokenIssuer
	throttle ports.LoginThrottle
	audit    ports.AuditSink
	tokenTTL time.Duration
	logger   zerolog.Logger
	now      func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

// AuthOption configures optional collaborators of AuthService.
type AuthOption func(*AuthService)

// WithLoginThrottle enables failed-login limiting.
func WithLoginThrottle(t ports.LoginThrottle) AuthOption {
	return func(s *AuthService) { s.throttle = t }
}

// WithAuthAudit sends account events to sink.
func WithAuthAudit(sink ports.AuditSink) AuthOption {
	return func(s *AuthService) { s.audit = sink }
}

func NewAuthService(
	repo ports.UserRepository,
	hasher ports.PasswordHasher,
	tokens ports.TokenIssuer,
	tokenTTL time.Duration,
	logger zerolog.Logger,
	opts ...AuthOption,
) *AuthService {
	if tokenTTL <= 0 {
		tokenTTL = DefaultTokenTTL
	}
	s := &AuthService{
		repo:     repo,
		hasher:   hasher,
		tokens:   tokens,
		tokenTTL: tokenTTL,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates an account after checking username, then email, for
// prior use. The unique indexes remain the final arbiter: a concurrent
// registration that wins the race surfaces here as the matching duplicate
// error.
func (s *AuthService) Register(ctx context.Context, in ports.RegisterInput) (*domain.PublicUser, error) {
	role := in.Role
	if role == "" {
		role = domain.RoleUser
	}
	if !role.Valid() {
		return nil, domain.ErrInvalidRole
	}

	if err := s.ensureUnused(ctx, in.Username, in.Email); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}

	now := s.now().UTC()
	user := &domain.User{
		Email:        in.Email,
		Username:     in.Username,
		PasswordHash: hash,
		IsActive:     true,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	id, err := s.repo.Insert(ctx, user)
	if err != nil {
		if errors.Is(err, domain.ErrConstraintViolation) {
			return nil, resolveConflict(ctx, s.repo, &in.Username, &in.Email, "")
		}
		return nil, fmt.Errorf("register: %w", err)
	}
	user.ID = id

	s.emit(domain.AuditUserRegistered, "", user)
	s.logger.Info().Str("user_id", id).Str("username", user.Username).Str("role", string(role)).Msg("user registered")

	return user.Public(), nil
}

func (s *AuthService) ensureUnused(ctx context.Context, username, email string) error {
	if _, err := s.repo.FindByUsername(ctx, username); err == nil {
		return domain.ErrDuplicateUsername
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return fmt.Errorf("register: %w", err)
	}

	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return domain.ErrDuplicateEmail
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return fmt.Errorf("register: %w", err)
	}
	return nil
}

// Authenticate returns the full user record when username and password
// match, and (nil, nil) otherwise. Unknown usernames and wrong passwords are
// indistinguishable, including in timing: a dummy hash is verified when the
// user does not exist. Only store failures produce an error.
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (*domain.User, error) {
	user, err := s.repo.FindByUsername(ctx, username)
	if errors.Is(err, domain.ErrUserNotFound) {
		s.hasher.Verify(password, s.fallbackHash())
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("authenticate: %w", err)
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, nil
	}
	return user, nil
}

func (s *AuthService) fallbackHash() string {
	s.dummyOnce.Do(func() {
		h, err := s.hasher.Hash("timing-equalisation-placeholder")
		if err != nil {
			s.logger.Warn().Err(err).Msg("failed to build fallback hash")
			return
		}
		s.dummyHash = h
	})
	return s.dummyHash
}

// IssueSessionToken signs a token for user valid for the configured TTL.
func (s *AuthService) IssueSessionToken(user *domain.User) (*domain.AccessToken, error) {
	token, err := s.tokens.Issue(user.Username, s.tokenTTL)
	if err != nil {
		return nil, fmt.Errorf("issue session token: %w", err)
	}
	return token, nil
}

// Login authenticates and, on success, issues a session token. Any
// credential mismatch is reported as domain.ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, username, password string) (*domain.AccessToken, error) {
	if s.throttle != nil {
		blocked, err := s.throttle.Blocked(ctx, username)
		if err != nil {
			s.logger.Warn().Err(err).Str("username", username).Msg("login throttle check failed, continuing")
		} else if blocked {
			return nil, domain.ErrTooManyAttempts
		}
	}

	user, err := s.Authenticate(ctx, username, password)
	if err != nil {
		return nil, err
	}

	if user == nil {
		if s.throttle != nil {
			if err := s.throttle.RecordFailure(ctx, username); err != nil {
				s.logger.Warn().Err(err).Str("username", username).Msg("failed to record login failure")
			}
		}
		s.emit(domain.AuditUserLoginFailed, "", &domain.User{Username: username})
		s.logger.Info().Str("username", username).Msg("login rejected")
		return nil, domain.ErrInvalidCredentials
	}

	if s.throttle != nil {
		if err := s.throttle.Reset(ctx, username); err != nil {
			s.logger.Warn().Err(err).Str("username", username).Msg("failed to reset login throttle")
		}
	}

	token, err := s.IssueSessionToken(user)
	if err != nil {
		return nil, err
	}

	s.emit(domain.AuditUserLogin, user.ID, user)
	return token, nil
}

// ResolveCurrentUser re-reads the token subject from the store, so deletion
// and deactivation take effect before the token expires.
func (s *AuthService) ResolveCurrentUser(ctx context.Context, subject string) (*domain.User, error) {
	user, err := s.repo.FindByUsername(ctx, subject)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("resolve current user: %w", err)
	}
	if !user.IsActive {
		return nil, domain.ErrInactive
	}
	return user, nil
}

// CurrentUser maps a bearer token to an active user. Bad, expired or
// orphaned tokens all yield domain.ErrUnauthorized.
func (s *AuthService) CurrentUser(ctx context.Context, token string) (*domain.User, error) {
	subject, err := s.tokens.Verify(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrUnauthorized, err)
	}

	user, err := s.ResolveCurrentUser(ctx, subject)
	if errors.Is(err, domain.ErrUserNotFound) {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	}
	return user, err
}

func (s *AuthService) emit(action domain.AuditAction, actorID string, target *domain.User) {
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
