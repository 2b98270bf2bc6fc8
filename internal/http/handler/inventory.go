package handler

import (
	"github.com/gofiber/fiber/v2"

	"marketapi/internal/apperr"
	"marketapi/internal/model"
)

type createInventoryRequest struct {
	ShopID   string `json:"shop_id"`
	ItemID   string `json:"item_id"`
	Quantity *int   `json:"quantity"`
}

type updateInventoryRequest struct {
	Quantity *int `json:"quantity"`
}

func (h *Handler) createInventory(c *fiber.Ctx) error {
	who, err := identity(c)
	if err != nil {
		return err
	}
	var req createInventoryRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	qty := 0
	if req.Quantity != nil {
		qty = *req.Quantity
	}
	inv, err := h.Inventory.Create(c.UserContext(), who, req.ShopID, req.ItemID, qty)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(inv)
}

func (h *Handler) getInventory(c *fiber.Ctx) error {
	inv, src, err := h.Inventory.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	c.Set(cacheHeader, string(src))
	return c.JSON(inv)
}

func (h *Handler) listInventory(c *fiber.Ctx) error {
	limit, offset, err := pageParams(c)
	if err != nil {
		return err
	}
	rows, err := h.Inventory.ListByShop(c.UserContext(), c.Params("id"), limit, offset)
	if err != nil {
		return err
	}
	return c.JSON(listResponse[*model.Inventory]{Data: rows, Limit: limit, Offset: offset})
}

func (h *Handler) updateInventory(c *fiber.Ctx) error {
	who, err := identity(c)
	if err != nil {
		return err
	}
	var req updateInventoryRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if req.Quantity == nil {
		return apperr.Validation("inventory.update", "quantity is required")
	}
	inv, noop, err := h.Inventory.Update(c.UserContext(), who, c.Params("id"), *req.Quantity)
	if err != nil {
		return err
	}
	markNoop(c, noop)
	return c.JSON(inv)
}

func (h *Handler) deleteInventory(c *fiber.Ctx) error {
	who, err := identity(c)
	if err != nil {
		return err
	}
	inv, err := h.Inventory.Delete(c.UserContext(), who, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(inv)
}
