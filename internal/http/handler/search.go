package handler

import (
	"github.com/gofiber/fiber/v2"
)

// searchShops runs a text query over shop names and descriptions.
//
// @Summary Search shops
// @Tags search
// @Produce json
// @Param q query string true "query"
// @Param limit query int false "max results" default(10)
// @Success 200 {array} search.ShopDocument
// @Router /search/shops [get]
func (h *Handler) searchShops(c *fiber.Ctx) error {
	limit, err := queryInt(c, "limit", 10)
	if err != nil {
		return err
	}
	docs, err := h.Search.Shops(c.UserContext(), c.Query("q"), limit)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": docs})
}

func (h *Handler) searchItems(c *fiber.Ctx) error {
	limit, err := queryInt(c, "limit", 10)
	if err != nil {
		return err
	}
	docs, err := h.Search.Items(c.UserContext(), c.Query("q"), limit)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": docs})
}
