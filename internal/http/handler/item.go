package handler

import (
	"github.com/gofiber/fiber/v2"

	"marketapi/internal/apperr"
	"marketapi/internal/model"
	"marketapi/internal/service"
)

type createItemRequest struct {
	ShopID      string   `json:"shop_id"`
	Name        string   `json:"name"`
	Price       *float64 `json:"price"`
	Description *string  `json:"description"`
	Note        *string  `json:"note"`
}

type updateItemRequest = service.ItemPatch

// createItem adds an item to a shop the caller manages.
//
// @Summary Create item
// @Tags items
// @Accept json
// @Produce json
// @Param body body createItemRequest true "item"
// @Success 201 {object} model.Item
// @Failure 400 {object} errorPayload
// @Failure 409 {object} errorPayload
// @Router /items [post]
func (h *Handler) createItem(c *fiber.Ctx) error {
	who, err := identity(c)
	if err != nil {
		return err
	}
	var req createItemRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if req.Price == nil {
		return apperr.Validation("item.create", "price is required")
	}
	item, err := h.Items.Create(c.UserContext(), who, service.ItemInput{
		ShopID:      req.ShopID,
		Name:        req.Name,
		Price:       *req.Price,
		Description: req.Description,
		Note:        req.Note,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(item)
}

func (h *Handler) getItem(c *fiber.Ctx) error {
	item, src, err := h.Items.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	c.Set(cacheHeader, string(src))
	return c.JSON(item)
}

func (h *Handler) listItems(c *fiber.Ctx) error {
	limit, offset, err := pageParams(c)
	if err != nil {
		return err
	}
	items, err := h.Items.ListByShop(c.UserContext(), c.Params("id"), limit, offset)
	if err != nil {
		return err
	}
	return c.JSON(listResponse[*model.Item]{Data: items, Limit: limit, Offset: offset})
}

func (h *Handler) updateItem(c *fiber.Ctx) error {
	who, err := identity(c)
	if err != nil {
		return err
	}
	var req updateItemRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	item, noop, err := h.Items.Update(c.UserContext(), who, c.Params("id"), req)
	if err != nil {
		return err
	}
	markNoop(c, noop)
	return c.JSON(item)
}

func (h *Handler) deleteItem(c *fiber.Ctx) error {
	who, err := identity(c)
	if err != nil {
		return err
	}
	item, err := h.Items.Delete(c.UserContext(), who, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(item)
}
