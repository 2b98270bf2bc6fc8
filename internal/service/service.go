// Package service implements the marketplace use cases on top of the
// record store, the point cache and the search index mirror.
//
// A write commits to the store, invalidates the cache keys it touched before
// returning, then hands the change to the mirror. Mirror failures never reach
// the caller.
package service

import (
	"bytes"
	"context"
	"encoding/json"
	"math"

	"github.com/rs/zerolog"

	"marketapi/internal/apperr"
	"marketapi/internal/auth"
	"marketapi/internal/cache"
	"marketapi/internal/model"
	"marketapi/internal/repository"
	"marketapi/internal/search"
)

// Cache kinds. Keys are <kind>:<id>.
const (
	shopKind      = "shop"
	itemKind      = "item"
	inventoryKind = "inventory"
)

const (
	defaultLimit = 10
	maxLimit     = 100
)

// IndexMirror receives committed shop and item changes. Implementations must
// not block the caller.
type IndexMirror interface {
	ShopChanged(s *model.Shop)
	ShopDeleted(id string)
	ItemChanged(i *model.Item)
	ItemDeleted(id string)
}

// SearchIndex is the read side of the search index.
type SearchIndex interface {
	Nearby(ctx context.Context, q search.NearbyQuery) ([]search.NearbyHit, error)
	SearchShops(ctx context.Context, q string, limit int) ([]search.ShopDocument, error)
	SearchItems(ctx context.Context, q string, limit int) ([]search.ItemDocument, error)
}

// Deps are the collaborators shared by the services.
type Deps struct {
	Store  *repository.Store
	Cache  *cache.Layer
	Mirror IndexMirror
	Index  SearchIndex
	Log    zerolog.Logger
}

// Nullable is a patch field for a nullable column. Set is false when the
// field was absent; a set field with a nil Value clears the column.
type Nullable[T any] struct {
	Set   bool
	Value *T
}

// Of returns a set Nullable holding v.
func Of[T any](v T) Nullable[T] { return Nullable[T]{Set: true, Value: &v} }

// Null returns a set Nullable that clears the column.
func Null[T any]() Nullable[T] { return Nullable[T]{Set: true} }

func (n *Nullable[T]) UnmarshalJSON(b []byte) error {
	n.Set = true
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		n.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	n.Value = &v
	return nil
}

// apply records the change for col when the field was given.
func (n Nullable[T]) apply(c repository.Changes, col string) {
	if !n.Set {
		return
	}
	if n.Value == nil {
		c[col] = nil
		return
	}
	c[col] = *n.Value
}

// validPrice accepts positive amounts with at most two decimal places, the
// precision of the price column.
func validPrice(op string, price float64) error {
	if !(price > 0) || math.IsInf(price, 0) {
		return apperr.Validation(op, "price must be greater than zero")
	}
	cents := price * 100
	if math.Abs(cents-math.Round(cents)) > 1e-6 {
		return apperr.Validation(op, "price must have at most two decimal places")
	}
	return nil
}

func page(limit, offset int) repository.PageQuery {
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return repository.PageQuery{Limit: limit, Offset: offset}
}

// canManage reports whether who may mutate shop and what hangs off it.
func canManage(who auth.Identity, shop *model.Shop) bool {
	return who.HasRole(model.RoleAdmin) || shop.OwnerID == who.Subject
}

func authorize(op string, who auth.Identity, shop *model.Shop) error {
	if !canManage(who, shop) {
		return apperr.Forbidden(op, "not the owner of this shop")
	}
	return nil
}

// first returns the single record matching f, or a NotFound error naming kind.
func first[T any](ctx context.Context, op, kind string, r repository.Records[T], f repository.Filter) (*T, error) {
	found, err := r.Get(ctx, f, false)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, apperr.NotFound(op, kind+" not found")
	}
	return found[0], nil
}

// cached reads kind:id through the cache, loading from r on a miss.
func cached[T any](ctx context.Context, c *cache.Layer, op, kind, id string, r repository.Records[T]) (*T, cache.Source, error) {
	if id == "" {
		return nil, cache.SourceStore, apperr.Validation(op, "id is required")
	}
	v, src, err := cache.GetOrLoad(ctx, c, kind, id, func(ctx context.Context) (*T, error) {
		found, err := r.Get(ctx, repository.Filter{"id": id}, false)
		if err != nil || len(found) == 0 {
			return nil, err
		}
		return found[0], nil
	})
	if err != nil {
		return nil, src, err
	}
	if v == nil {
		return nil, src, apperr.NotFound(op, kind+" not found")
	}
	return v, src, nil
}

// invalidate drops keys from the cache. The cache layer logs failures; the
// entries then expire by TTL.
func invalidate(ctx context.Context, c *cache.Layer, keys ...string) {
	_ = c.Invalidate(ctx, keys...)
}
