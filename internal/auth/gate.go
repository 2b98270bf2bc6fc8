package auth

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"marketapi/internal/apperr"
	"marketapi/internal/cache"
	"marketapi/internal/metrics"
	"marketapi/internal/model"
	"marketapi/internal/repository"
)

const sessionKind = "session"

// Gate authenticates session tokens. Sessions are looked up through the cache
// and expire exactly at ExpiresAt; they are never extended.
type Gate struct {
	sessions repository.Records[model.Session]
	cache    *cache.Layer
	metrics  *metrics.Metrics
	log      zerolog.Logger
	now      func() time.Time
}

func NewGate(sessions repository.Records[model.Session], c *cache.Layer, m *metrics.Metrics, log zerolog.Logger) *Gate {
	return &Gate{
		sessions: sessions,
		cache:    c,
		metrics:  m,
		log:      log.With().Str("component", "session_gate").Logger(),
		now:      time.Now,
	}
}

// Authenticate resolves token to an identity and returns ctx carrying it.
// An expired session is deleted before the rejection is returned.
func (g *Gate) Authenticate(ctx context.Context, token string) (context.Context, Identity, error) {
	const op = "auth.authenticate"
	if token == "" {
		g.metrics.AuthRejected("missing")
		return ctx, Identity{}, apperr.Auth(op, "missing/invalid token")
	}

	sess, _, err := cache.GetOrLoad(ctx, g.cache, sessionKind, token, func(ctx context.Context) (*model.Session, error) {
		found, err := g.sessions.Get(ctx, repository.Filter{"token": token}, false)
		if err != nil || len(found) == 0 {
			return nil, err
		}
		return found[0], nil
	})
	if err != nil {
		return ctx, Identity{}, err
	}
	if sess == nil {
		g.metrics.AuthRejected("invalid")
		return ctx, Identity{}, apperr.Auth(op, "missing/invalid token")
	}

	if !g.now().Before(sess.ExpiresAt) {
		g.metrics.AuthRejected("expired")
		if err := g.Revoke(ctx, token); err != nil {
			g.log.Warn().Err(err).Str("user_id", sess.UserID).Msg("failed to remove expired session")
		}
		return ctx, Identity{}, apperr.Auth(op, "expired")
	}

	id := Identity{Subject: sess.UserID, Role: sess.Role, Token: token}
	return WithIdentity(ctx, id), id, nil
}

// Revoke deletes the session and its cache entry. A session that is already
// gone is not an error.
func (g *Gate) Revoke(ctx context.Context, token string) error {
	_, err := g.sessions.Delete(ctx, repository.Filter{"token": token})
	if err != nil && !errors.Is(err, apperr.ErrNotFound) {
		return err
	}
	if err := g.cache.Invalidate(ctx, cache.Key(sessionKind, token)); err != nil {
		g.log.Error().Err(err).Msg("session cache invalidation failed")
	}
	return nil
}
