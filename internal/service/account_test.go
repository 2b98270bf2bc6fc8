package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"marketapi/internal/apperr"
	"marketapi/internal/auth"
	"marketapi/internal/model"
	"marketapi/internal/repository"
)

type revokerFunc func(ctx context.Context, token string) error

func (f revokerFunc) Revoke(ctx context.Context, token string) error { return f(ctx, token) }

func newAccounts(f *fixture, now time.Time) *accountService {
	svc := NewAccountService(f.deps, revokerFunc(func(context.Context, string) error { return nil }),
		SessionTTLs{Default: 90 * time.Hour, Long: 720 * time.Hour}).(*accountService)
	svc.now = func() time.Time { return now }
	return svc
}

func TestAccountService_Register(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := newAccounts(f, time.Now())

	f.users.On("Insert", ctx, mock.MatchedBy(func(u *model.User) bool {
		return u.Email == "vendor@example.com" && u.Role == model.RoleVendor && auth.VerifyPassword(u.PasswordHash, "s3cretpass")
	})).Return(func(_ context.Context, u *model.User) *model.User {
		u.ID = "user-1"
		return u
	}, nil).Once()

	u, err := svc.Register(ctx, "  Vendor@Example.com ", "s3cretpass", model.RoleVendor)
	require.NoError(t, err)
	assert.Equal(t, "user-1", u.ID)

	f.users.On("Insert", ctx, mock.Anything).Return(nil, apperr.Conflict("user.insert", "taken")).Once()
	_, err = svc.Register(ctx, "vendor@example.com", "s3cretpass", model.RoleVendor)
	assert.ErrorIs(t, err, apperr.ErrConflict)
	assert.Equal(t, "email already registered", apperr.Message(err))
}

func TestAccountService_RegisterValidation(t *testing.T) {
	ctx := context.Background()
	svc := newAccounts(newFixture(t), time.Now())

	cases := []struct {
		name, email, password string
		role                  model.Role
	}{
		{"bad email", "nobody", "s3cretpass", model.RoleUser},
		{"short password", "a@b.c", "short", model.RoleUser},
		{"admin cannot self register", "a@b.c", "s3cretpass", model.RoleAdmin},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tc.email, tc.password, tc.role)
			assert.ErrorIs(t, err, apperr.ErrValidation)
		})
	}
}

func TestAccountService_Login(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	hash, err := auth.HashPassword("s3cretpass")
	require.NoError(t, err)
	user := &model.User{ID: "user-1", Email: "v@example.com", PasswordHash: hash, Role: model.RoleVendor}

	t.Run("session expires after the ttl", func(t *testing.T) {
		f := newFixture(t)
		svc := newAccounts(f, now)
		f.users.On("Get", ctx, repository.Filter{"email": "v@example.com"}, false).Return([]*model.User{user}, nil)
		f.sessions.On("Insert", ctx, mock.AnythingOfType("*model.Session")).
			Return(func(_ context.Context, s *model.Session) *model.Session { return s }, nil)

		sess, err := svc.Login(ctx, "V@example.com", "s3cretpass", false)
		require.NoError(t, err)
		assert.NotEmpty(t, sess.Token)
		assert.Equal(t, model.RoleVendor, sess.Role)
		assert.Equal(t, now, sess.CreatedAt)
		assert.Equal(t, now.Add(90*time.Hour), sess.ExpiresAt)

		long, err := svc.Login(ctx, "v@example.com", "s3cretpass", true)
		require.NoError(t, err)
		assert.Equal(t, now.Add(720*time.Hour), long.ExpiresAt)
		assert.NotEqual(t, sess.Token, long.Token)
	})

	t.Run("wrong password", func(t *testing.T) {
		f := newFixture(t)
		svc := newAccounts(f, now)
		f.users.On("Get", ctx, repository.Filter{"email": "v@example.com"}, false).Return([]*model.User{user}, nil)
		_, err := svc.Login(ctx, "v@example.com", "nope-nope", false)
		assert.ErrorIs(t, err, apperr.ErrAuth)
		f.sessions.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
	})

	t.Run("unknown email", func(t *testing.T) {
		f := newFixture(t)
		svc := newAccounts(f, now)
		f.users.On("Get", ctx, repository.Filter{"email": "x@example.com"}, false).Return([]*model.User{}, nil)
		_, err := svc.Login(ctx, "x@example.com", "s3cretpass", false)
		assert.ErrorIs(t, err, apperr.ErrAuth)
	})
}

func TestAccountService_Logout(t *testing.T) {
	f := newFixture(t)
	var revoked string
	svc := NewAccountService(f.deps, revokerFunc(func(_ context.Context, tok string) error {
		revoked = tok
		return nil
	}), SessionTTLs{Default: time.Hour, Long: time.Hour})

	require.NoError(t, svc.Logout(context.Background(), "tok"))
	assert.Equal(t, "tok", revoked)
	assert.ErrorIs(t, svc.Logout(context.Background(), ""), apperr.ErrAuth)
}
