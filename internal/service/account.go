package service

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"marketapi/internal/apperr"
	"marketapi/internal/auth"
	"marketapi/internal/model"
	"marketapi/internal/repository"
)

const minPasswordLen = 8

// SessionRevoker ends a session and drops its cache entry.
type SessionRevoker interface {
	Revoke(ctx context.Context, token string) error
}

// SessionTTLs are the lifetimes of normal and keep-login sessions.
type SessionTTLs struct {
	Default time.Duration
	Long    time.Duration
}

// AccountService defines registration and login.
type AccountService interface {
	Register(ctx context.Context, email, password string, role model.Role) (*model.User, error)
	// Login verifies the credentials and opens a session that expires at
	// CreatedAt plus the configured TTL.
	Login(ctx context.Context, email, password string, keepLogin bool) (*model.Session, error)
	Logout(ctx context.Context, token string) error
	Me(ctx context.Context, who auth.Identity) (*model.User, error)
}

type accountService struct {
	users    repository.Records[model.User]
	sessions repository.Records[model.Session]
	revoker  SessionRevoker
	ttls     SessionTTLs
	log      zerolog.Logger
	now      func() time.Time
}

func NewAccountService(d Deps, revoker SessionRevoker, ttls SessionTTLs) AccountService {
	return &accountService{
		users:    d.Store.Users,
		sessions: d.Store.Sessions,
		revoker:  revoker,
		ttls:     ttls,
		log:      d.Log.With().Str("component", "account_service").Logger(),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *accountService) Register(ctx context.Context, email, password string, role model.Role) (*model.User, error) {
	const op = "account.register"
	email = normalizeEmail(email)
	if at := strings.IndexByte(email, '@'); at <= 0 || at == len(email)-1 {
		return nil, apperr.Validation(op, "a valid email is required")
	}
	if len(password) < minPasswordLen {
		return nil, apperr.Validation(op, "password must be at least 8 characters")
	}
	if role == "" {
		role = model.RoleUser
	}
	if role != model.RoleUser && role != model.RoleVendor {
		return nil, apperr.Validation(op, "role must be USER or VENDOR")
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}
	u, err := s.users.Insert(ctx, &model.User{Email: email, PasswordHash: hash, Role: role})
	if err != nil {
		if apperr.KindOf(err) == apperr.KindConflict {
			return nil, apperr.Conflict(op, "email already registered")
		}
		return nil, err
	}
	s.log.Info().Str("user_id", u.ID).Str("role", string(u.Role)).Msg("user registered")
	return u, nil
}

func (s *accountService) Login(ctx context.Context, email, password string, keepLogin bool) (*model.Session, error) {
	const op = "account.login"
	found, err := s.users.Get(ctx, repository.Filter{"email": normalizeEmail(email)}, false)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 || !auth.VerifyPassword(found[0].PasswordHash, password) {
		return nil, apperr.Auth(op, "invalid email or password")
	}
	u := found[0]

	token, err := auth.NewToken()
	if err != nil {
		return nil, err
	}
	ttl := s.ttls.Default
	if keepLogin {
		ttl = s.ttls.Long
	}
	now := s.now()
	return s.sessions.Insert(ctx, &model.Session{
		Token:     token,
		UserID:    u.ID,
		Role:      u.Role,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	})
}

func (s *accountService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return apperr.Auth("account.logout", "missing/invalid token")
	}
	return s.revoker.Revoke(ctx, token)
}

func (s *accountService) Me(ctx context.Context, who auth.Identity) (*model.User, error) {
	return first(ctx, "account.me", "user", s.users, repository.Filter{"id": who.Subject})
}
