// Package cache is the read-through point cache in front of the record store.
//
// Entries are written only after a store read and removed on every write to
// the same key. Each key has a generation counter under "gen:<key>": a reader
// notes the generation before loading and fills the cache only if the
// generation is unchanged, so an invalidation that lands while the load is in
// flight is never overwritten by the stale value.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"marketapi/internal/metrics"
)

// Source tells whether a value came from the cache or from the store.
type Source string

const (
	SourceCache Source = "cache"
	SourceStore Source = "store"
)

const (
	defaultTTL = time.Minute
	genTTL     = 24 * time.Hour
)

var errStaleFill = errors.New("cache: generation changed during load")

// Key formats the cache key of one entity.
func Key(kind, id string) string { return kind + ":" + id }

func genKey(key string) string { return "gen:" + key }

// Layer wraps a Redis client. A nil Layer or a Layer without a client passes
// every read to the loader and ignores invalidations.
type Layer struct {
	client  *redis.Client
	ttls    map[string]time.Duration
	metrics *metrics.Metrics
	log     zerolog.Logger
}

// New returns a Layer. ttls maps entity kinds to entry lifetimes.
func New(client *redis.Client, ttls map[string]time.Duration, m *metrics.Metrics, log zerolog.Logger) *Layer {
	return &Layer{
		client:  client,
		ttls:    ttls,
		metrics: m,
		log:     log.With().Str("component", "cache").Logger(),
	}
}

func (l *Layer) enabled() bool { return l != nil && l.client != nil }

func (l *Layer) ttl(kind string) time.Duration {
	if d, ok := l.ttls[kind]; ok && d > 0 {
		return d
	}
	return defaultTTL
}

// GetOrLoad returns the cached value of kind:id, or calls load and caches its result.
// Loader errors are returned unchanged and nothing is cached. Cache failures
// never fail the read.
func GetOrLoad[T any](ctx context.Context, l *Layer, kind, id string, load func(context.Context) (*T, error)) (*T, Source, error) {
	if !l.enabled() {
		v, err := load(ctx)
		return v, SourceStore, err
	}

	key := Key(kind, id)
	raw, err := l.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var v T
		if uerr := json.Unmarshal(raw, &v); uerr == nil {
			l.metrics.CacheResult(kind, "hit")
			return &v, SourceCache, nil
		}
		l.log.Warn().Str("key", key).Msg("discarding undecodable cache entry")
		l.metrics.CacheResult(kind, "miss")
	case errors.Is(err, redis.Nil):
		l.metrics.CacheResult(kind, "miss")
	default:
		l.log.Warn().Err(err).Str("key", key).Msg("cache read failed")
		l.metrics.CacheResult(kind, "error")
		v, err := load(ctx)
		return v, SourceStore, err
	}

	gen, err := l.client.Get(ctx, genKey(key)).Result()
	canFill := err == nil || errors.Is(err, redis.Nil)

	v, err := load(ctx)
	if err != nil || v == nil {
		return v, SourceStore, err
	}
	if canFill {
		l.fill(ctx, key, gen, l.ttl(kind), v)
	}
	return v, SourceStore, nil
}

func (l *Layer) fill(ctx context.Context, key, gen string, ttl time.Duration, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		l.log.Warn().Err(err).Str("key", key).Msg("cache encode failed")
		return
	}

	gk := genKey(key)
	err = l.client.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, gk).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if cur != gen {
			return errStaleFill
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, key, b, ttl)
			return nil
		})
		return err
	}, gk)

	switch {
	case err == nil:
	case errors.Is(err, errStaleFill), errors.Is(err, redis.TxFailedErr):
		l.log.Debug().Str("key", key).Msg("skipped cache fill after concurrent invalidation")
	default:
		l.log.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
}

// Invalidate removes keys and bumps their generations in one transaction.
func (l *Layer) Invalidate(ctx context.Context, keys ...string) error {
	if !l.enabled() || len(keys) == 0 {
		return nil
	}
	_, err := l.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		for _, k := range keys {
			p.Del(ctx, k)
			p.Incr(ctx, genKey(k))
			p.Expire(ctx, genKey(k), genTTL)
		}
		return nil
	})
	if err != nil {
		l.log.Error().Err(err).Strs("keys", keys).Msg("cache invalidation failed")
		l.metrics.CacheResult("invalidate", "error")
		return err
	}
	return nil
}

// Ping checks the cache connection. A disabled layer is always healthy.
func (l *Layer) Ping(ctx context.Context) error {
	if !l.enabled() {
		return nil
	}
	return l.client.Ping(ctx).Err()
}

// Open returns a client for addr, or nil when addr is empty.
func Open(addr, password string, db int) *redis.Client {
	if addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
}
