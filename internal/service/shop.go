package service

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"marketapi/internal/apperr"
	"marketapi/internal/auth"
	"marketapi/internal/cache"
	"marketapi/internal/geo"
	"marketapi/internal/model"
	"marketapi/internal/repository"
	"marketapi/internal/search"
)

// ShopInput carries the fields of a new shop.
type ShopInput struct {
	Name        string
	Address     string
	Contact     *string
	Description *string
	IsOpen      bool
	Latitude    float64
	Longitude   float64
	Note        *string
}

// ShopPatch carries the fields to change. Nil and unset fields are left
// alone; the Nullable fields can also be cleared. Latitude and Longitude must
// be given together.
type ShopPatch struct {
	Name        *string          `json:"name"`
	Address     *string          `json:"address"`
	Contact     Nullable[string] `json:"contact"`
	Description Nullable[string] `json:"description"`
	IsOpen      *bool            `json:"is_open"`
	Latitude    *float64         `json:"latitude"`
	Longitude   *float64         `json:"longitude"`
	Note        Nullable[string] `json:"note"`
}

// ShopFilter narrows a shop listing. Zero fields match everything.
type ShopFilter struct {
	OwnerID string
	IsOpen  *bool
}

// NearbyShop is a shop returned by a geo query.
type NearbyShop struct {
	Shop           *model.Shop
	DistanceMeters float64
}

// ShopService defines the shop use cases.
type ShopService interface {
	Create(ctx context.Context, who auth.Identity, in ShopInput) (*model.Shop, error)
	Get(ctx context.Context, id string) (*model.Shop, cache.Source, error)
	List(ctx context.Context, f ShopFilter, limit, offset int) ([]*model.Shop, error)
	// Update reports noop=true when every field already had the requested value.
	Update(ctx context.Context, who auth.Identity, id string, p ShopPatch) (shop *model.Shop, noop bool, err error)
	// Delete removes the shop with its items and inventory and returns the removed shop.
	Delete(ctx context.Context, who auth.Identity, id string) (*model.Shop, error)
	Nearby(ctx context.Context, q search.NearbyQuery) ([]NearbyShop, error)
}

type shopService struct {
	store  *repository.Store
	cache  *cache.Layer
	mirror IndexMirror
	index  SearchIndex
	log    zerolog.Logger
}

func NewShopService(d Deps) ShopService {
	return &shopService{
		store:  d.Store,
		cache:  d.Cache,
		mirror: d.Mirror,
		index:  d.Index,
		log:    d.Log.With().Str("component", "shop_service").Logger(),
	}
}

func (s *shopService) Create(ctx context.Context, who auth.Identity, in ShopInput) (*model.Shop, error) {
	const op = "shop.create"
	in.Name = strings.TrimSpace(in.Name)
	in.Address = strings.TrimSpace(in.Address)
	if in.Name == "" || in.Address == "" {
		return nil, apperr.Validation(op, "name and address are required")
	}
	loc, err := geo.Encode(in.Latitude, in.Longitude)
	if err != nil {
		return nil, err
	}

	if who.Role == model.RoleVendor {
		owned, err := s.store.Shops.Get(ctx, repository.Filter{"owner_id": who.Subject}, false)
		if err != nil {
			return nil, err
		}
		if len(owned) > 0 {
			return nil, apperr.Conflict(op, "vendor already owns a shop")
		}
	}
	owner, err := first(ctx, op, "owner", s.store.Users, repository.Filter{"id": who.Subject})
	if err != nil {
		return nil, err
	}

	shop, err := s.store.Shops.Insert(ctx, &model.Shop{
		OwnerID:     owner.ID,
		OwnerName:   owner.Email,
		Name:        in.Name,
		Address:     in.Address,
		Contact:     in.Contact,
		Description: in.Description,
		IsOpen:      in.IsOpen,
		Location:    loc,
		Note:        in.Note,
	})
	if err != nil {
		return nil, err
	}
	s.mirror.ShopChanged(shop)
	return shop, nil
}

func (s *shopService) Get(ctx context.Context, id string) (*model.Shop, cache.Source, error) {
	return cached(ctx, s.cache, "shop.get", shopKind, id, s.store.Shops)
}

func (s *shopService) List(ctx context.Context, sf ShopFilter, limit, offset int) ([]*model.Shop, error) {
	f := repository.Filter{}
	if sf.OwnerID != "" {
		f["owner_id"] = sf.OwnerID
	}
	if sf.IsOpen != nil {
		f["is_open"] = *sf.IsOpen
	}
	return s.store.Shops.List(ctx, f, page(limit, offset))
}

func (s *shopService) Update(ctx context.Context, who auth.Identity, id string, p ShopPatch) (*model.Shop, bool, error) {
	const op = "shop.update"
	changes, err := p.changes(op)
	if err != nil {
		return nil, false, err
	}
	cur, err := first(ctx, op, "shop", s.store.Shops, repository.Filter{"id": id})
	if err != nil {
		return nil, false, err
	}
	if err := authorize(op, who, cur); err != nil {
		return nil, false, err
	}
	if len(changes) == 0 {
		return cur, true, nil
	}

	res, err := s.store.Shops.Update(ctx, changes, repository.Filter{"id": id})
	if err != nil {
		return nil, false, err
	}
	if res.NoOp {
		return res.Record, true, nil
	}
	invalidate(ctx, s.cache, cache.Key(shopKind, id))
	s.mirror.ShopChanged(res.Record)
	return res.Record, false, nil
}

func (p ShopPatch) changes(op string) (repository.Changes, error) {
	c := repository.Changes{}
	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		if name == "" {
			return nil, apperr.Validation(op, "name must not be empty")
		}
		c["name"] = name
	}
	if p.Address != nil {
		addr := strings.TrimSpace(*p.Address)
		if addr == "" {
			return nil, apperr.Validation(op, "address must not be empty")
		}
		c["address"] = addr
	}
	p.Contact.apply(c, "contact")
	p.Description.apply(c, "description")
	if p.IsOpen != nil {
		c["is_open"] = *p.IsOpen
	}
	p.Note.apply(c, "note")
	if (p.Latitude == nil) != (p.Longitude == nil) {
		return nil, apperr.Validation(op, "latitude and longitude must be given together")
	}
	if p.Latitude != nil {
		loc, err := geo.Encode(*p.Latitude, *p.Longitude)
		if err != nil {
			return nil, err
		}
		c["location"] = []byte(loc)
	}
	return c, nil
}

func (s *shopService) Delete(ctx context.Context, who auth.Identity, id string) (*model.Shop, error) {
	const op = "shop.delete"
	cur, err := first(ctx, op, "shop", s.store.Shops, repository.Filter{"id": id})
	if err != nil {
		return nil, err
	}
	if err := authorize(op, who, cur); err != nil {
		return nil, err
	}

	// Items and inventory go with the shop through ON DELETE CASCADE; collect
	// their ids first so their cache entries and documents can be dropped too.
	items, err := s.store.Items.Get(ctx, repository.Filter{"shop_id": id}, true)
	if err != nil {
		return nil, err
	}
	stock, err := s.store.Inventories.Get(ctx, repository.Filter{"shop_id": id}, true)
	if err != nil {
		return nil, err
	}

	removed, err := s.store.Shops.Delete(ctx, repository.Filter{"id": id})
	if err != nil {
		return nil, err
	}

	keys := []string{cache.Key(shopKind, id)}
	for _, it := range items {
		keys = append(keys, cache.Key(itemKind, it.ID))
	}
	for _, inv := range stock {
		keys = append(keys, cache.Key(inventoryKind, inv.ID))
	}
	invalidate(ctx, s.cache, keys...)

	s.mirror.ShopDeleted(id)
	for _, it := range items {
		s.mirror.ItemDeleted(it.ID)
	}
	s.log.Info().Str("shop_id", id).Int("items", len(items)).Msg("shop deleted")
	return removed, nil
}

// Nearby queries the index for shop ids around a point and resolves them
// through the point cache. Ids the store no longer knows are skipped.
func (s *shopService) Nearby(ctx context.Context, q search.NearbyQuery) ([]NearbyShop, error) {
	const op = "shop.nearby"
	if _, err := geo.Encode(q.Lat, q.Lon); err != nil {
		return nil, err
	}
	if q.RadiusKM <= 0 {
		return nil, apperr.Validation(op, "radius must be positive")
	}
	q.Limit = page(q.Limit, 0).Limit

	hits, err := s.index.Nearby(ctx, q)
	if err != nil {
		return nil, apperr.IndexSync(op, err)
	}
	out := make([]NearbyShop, 0, len(hits))
	for _, h := range hits {
		shop, _, err := s.Get(ctx, h.ID)
		if apperr.KindOf(err) == apperr.KindNotFound {
			s.log.Debug().Str("doc_id", h.ID).Msg("index returned a shop missing from the store")
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, NearbyShop{Shop: shop, DistanceMeters: h.DistanceMeters})
	}
	return out, nil
}
