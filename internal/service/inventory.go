package service

import (
	"context"

	"marketapi/internal/apperr"
	"marketapi/internal/auth"
	"marketapi/internal/cache"
	"marketapi/internal/model"
	"marketapi/internal/repository"
)

// InventoryService defines the stock use cases. Inventory is not mirrored to
// the search index.
type InventoryService interface {
	Create(ctx context.Context, who auth.Identity, shopID, itemID string, quantity int) (*model.Inventory, error)
	Get(ctx context.Context, id string) (*model.Inventory, cache.Source, error)
	ListByShop(ctx context.Context, shopID string, limit, offset int) ([]*model.Inventory, error)
	Update(ctx context.Context, who auth.Identity, id string, quantity int) (inv *model.Inventory, noop bool, err error)
	Delete(ctx context.Context, who auth.Identity, id string) (*model.Inventory, error)
}

type inventoryService struct {
	store *repository.Store
	cache *cache.Layer
}

func NewInventoryService(d Deps) InventoryService {
	return &inventoryService{store: d.Store, cache: d.Cache}
}

func (s *inventoryService) Create(ctx context.Context, who auth.Identity, shopID, itemID string, quantity int) (*model.Inventory, error) {
	const op = "inventory.create"
	if shopID == "" || itemID == "" {
		return nil, apperr.Validation(op, "shop_id and item_id are required")
	}
	if quantity < 0 {
		return nil, apperr.Validation(op, "quantity must not be negative")
	}
	shop, err := first(ctx, op, "shop", s.store.Shops, repository.Filter{"id": shopID})
	if err != nil {
		return nil, err
	}
	if err := authorize(op, who, shop); err != nil {
		return nil, err
	}
	item, err := first(ctx, op, "item", s.store.Items, repository.Filter{"id": itemID})
	if err != nil {
		return nil, err
	}
	if item.ShopID != shop.ID {
		return nil, apperr.Validation(op, "item does not belong to this shop")
	}
	return s.store.Inventories.Insert(ctx, &model.Inventory{ShopID: shopID, ItemID: itemID, Quantity: quantity})
}

func (s *inventoryService) Get(ctx context.Context, id string) (*model.Inventory, cache.Source, error) {
	return cached(ctx, s.cache, "inventory.get", inventoryKind, id, s.store.Inventories)
}

func (s *inventoryService) ListByShop(ctx context.Context, shopID string, limit, offset int) ([]*model.Inventory, error) {
	if shopID == "" {
		return nil, apperr.Validation("inventory.list", "shop_id is required")
	}
	return s.store.Inventories.List(ctx, repository.Filter{"shop_id": shopID}, page(limit, offset))
}

func (s *inventoryService) owned(ctx context.Context, op string, who auth.Identity, id string) (*model.Inventory, error) {
	inv, err := first(ctx, op, "inventory", s.store.Inventories, repository.Filter{"id": id})
	if err != nil {
		return nil, err
	}
	shop, err := first(ctx, op, "shop", s.store.Shops, repository.Filter{"id": inv.ShopID})
	if err != nil {
		return nil, err
	}
	if err := authorize(op, who, shop); err != nil {
		return nil, err
	}
	return inv, nil
}

func (s *inventoryService) Update(ctx context.Context, who auth.Identity, id string, quantity int) (*model.Inventory, bool, error) {
	const op = "inventory.update"
	if quantity < 0 {
		return nil, false, apperr.Validation(op, "quantity must not be negative")
	}
	if _, err := s.owned(ctx, op, who, id); err != nil {
		return nil, false, err
	}
	res, err := s.store.Inventories.Update(ctx, repository.Changes{"quantity": quantity}, repository.Filter{"id": id})
	if err != nil {
		return nil, false, err
	}
	if res.NoOp {
		return res.Record, true, nil
	}
	invalidate(ctx, s.cache, cache.Key(inventoryKind, id))
	return res.Record, false, nil
}

func (s *inventoryService) Delete(ctx context.Context, who auth.Identity, id string) (*model.Inventory, error) {
	const op = "inventory.delete"
	if _, err := s.owned(ctx, op, who, id); err != nil {
		return nil, err
	}
	removed, err := s.store.Inventories.Delete(ctx, repository.Filter{"id": id})
	if err != nil {
		return nil, err
	}
	invalidate(ctx, s.cache, cache.Key(inventoryKind, id))
	return removed, nil
}
