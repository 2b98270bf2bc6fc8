package service

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"marketapi/internal/apperr"
	"marketapi/internal/auth"
	"marketapi/internal/cache"
	"marketapi/internal/model"
	"marketapi/internal/repository"
)

// ItemInput carries the fields of a new item.
type ItemInput struct {
	ShopID      string
	Name        string
	Price       float64
	Description *string
	Note        *string
}

// ItemPatch carries the fields to change. Nil and unset fields are left
// alone; description and note can also be cleared.
type ItemPatch struct {
	Name        *string          `json:"name"`
	Price       *float64         `json:"price"`
	Description Nullable[string] `json:"description"`
	Note        Nullable[string] `json:"note"`
}

// ItemService defines the item use cases.
type ItemService interface {
	Create(ctx context.Context, who auth.Identity, in ItemInput) (*model.Item, error)
	Get(ctx context.Context, id string) (*model.Item, cache.Source, error)
	ListByShop(ctx context.Context, shopID string, limit, offset int) ([]*model.Item, error)
	Update(ctx context.Context, who auth.Identity, id string, p ItemPatch) (item *model.Item, noop bool, err error)
	Delete(ctx context.Context, who auth.Identity, id string) (*model.Item, error)
}

type itemService struct {
	store  *repository.Store
	cache  *cache.Layer
	mirror IndexMirror
	log    zerolog.Logger
}

func NewItemService(d Deps) ItemService {
	return &itemService{
		store:  d.Store,
		cache:  d.Cache,
		mirror: d.Mirror,
		log:    d.Log.With().Str("component", "item_service").Logger(),
	}
}

func (s *itemService) Create(ctx context.Context, who auth.Identity, in ItemInput) (*model.Item, error) {
	const op = "item.create"
	in.Name = strings.TrimSpace(in.Name)
	if in.ShopID == "" || in.Name == "" {
		return nil, apperr.Validation(op, "shop_id and name are required")
	}
	if err := validPrice(op, in.Price); err != nil {
		return nil, err
	}
	shop, err := first(ctx, op, "shop", s.store.Shops, repository.Filter{"id": in.ShopID})
	if err != nil {
		return nil, err
	}
	if err := authorize(op, who, shop); err != nil {
		return nil, err
	}

	item, err := s.store.Items.Insert(ctx, &model.Item{
		ShopID:      shop.ID,
		Name:        in.Name,
		Price:       in.Price,
		Description: in.Description,
		Note:        in.Note,
	})
	if err != nil {
		return nil, err
	}
	s.mirror.ItemChanged(item)
	return item, nil
}

func (s *itemService) Get(ctx context.Context, id string) (*model.Item, cache.Source, error) {
	return cached(ctx, s.cache, "item.get", itemKind, id, s.store.Items)
}

func (s *itemService) ListByShop(ctx context.Context, shopID string, limit, offset int) ([]*model.Item, error) {
	if shopID == "" {
		return nil, apperr.Validation("item.list", "shop_id is required")
	}
	return s.store.Items.List(ctx, repository.Filter{"shop_id": shopID}, page(limit, offset))
}

// owned loads the item and checks that who manages its shop.
func (s *itemService) owned(ctx context.Context, op string, who auth.Identity, id string) (*model.Item, error) {
	item, err := first(ctx, op, "item", s.store.Items, repository.Filter{"id": id})
	if err != nil {
		return nil, err
	}
	shop, err := first(ctx, op, "shop", s.store.Shops, repository.Filter{"id": item.ShopID})
	if err != nil {
		return nil, err
	}
	if err := authorize(op, who, shop); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *itemService) Update(ctx context.Context, who auth.Identity, id string, p ItemPatch) (*model.Item, bool, error) {
	const op = "item.update"
	changes := repository.Changes{}
	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		if name == "" {
			return nil, false, apperr.Validation(op, "name must not be empty")
		}
		changes["name"] = name
	}
	if p.Price != nil {
		if err := validPrice(op, *p.Price); err != nil {
			return nil, false, err
		}
		changes["price"] = *p.Price
	}
	p.Description.apply(changes, "description")
	p.Note.apply(changes, "note")

	cur, err := s.owned(ctx, op, who, id)
	if err != nil {
		return nil, false, err
	}
	if len(changes) == 0 {
		return cur, true, nil
	}
	res, err := s.store.Items.Update(ctx, changes, repository.Filter{"id": id})
	if err != nil {
		return nil, false, err
	}
	if res.NoOp {
		return res.Record, true, nil
	}
	invalidate(ctx, s.cache, cache.Key(itemKind, id))
	s.mirror.ItemChanged(res.Record)
	return res.Record, false, nil
}

func (s *itemService) Delete(ctx context.Context, who auth.Identity, id string) (*model.Item, error) {
	const op = "item.delete"
	if _, err := s.owned(ctx, op, who, id); err != nil {
		return nil, err
	}
	stock, err := s.store.Inventories.Get(ctx, repository.Filter{"item_id": id}, true)
	if err != nil {
		return nil, err
	}
	removed, err := s.store.Items.Delete(ctx, repository.Filter{"id": id})
	if err != nil {
		return nil, err
	}
	keys := []string{cache.Key(itemKind, id)}
	for _, inv := range stock {
		keys = append(keys, cache.Key(inventoryKind, inv.ID))
	}
	invalidate(ctx, s.cache, keys...)
	s.mirror.ItemDeleted(id)
	return removed, nil
}
