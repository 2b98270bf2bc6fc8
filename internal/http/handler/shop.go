package handler

import (
	"github.com/gofiber/fiber/v2"

	"marketapi/internal/apperr"
	"marketapi/internal/search"
	"marketapi/internal/service"
)

type createShopRequest struct {
	Name        string   `json:"name"`
	Address     string   `json:"address"`
	Contact     *string  `json:"contact"`
	Description *string  `json:"description"`
	IsOpen      *bool    `json:"is_open"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
	Note        *string  `json:"note"`
}

// updateShopRequest tells an absent contact, description or note from an
// explicit null, which clears the field.
type updateShopRequest = service.ShopPatch

// createShop creates a shop owned by the caller.
//
// @Summary Create shop
// @Tags shops
// @Accept json
// @Produce json
// @Param body body createShopRequest true "shop"
// @Success 201 {object} shopView
// @Failure 400 {object} errorPayload
// @Failure 409 {object} errorPayload
// @Router /shops [post]
func (h *Handler) createShop(c *fiber.Ctx) error {
	who, err := identity(c)
	if err != nil {
		return err
	}
	var req createShopRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if req.Latitude == nil || req.Longitude == nil {
		return apperr.Validation("shop.create", "latitude and longitude are required")
	}
	in := service.ShopInput{
		Name:        req.Name,
		Address:     req.Address,
		Contact:     req.Contact,
		Description: req.Description,
		IsOpen:      req.IsOpen == nil || *req.IsOpen,
		Latitude:    *req.Latitude,
		Longitude:   *req.Longitude,
		Note:        req.Note,
	}
	shop, err := h.Shops.Create(c.UserContext(), who, in)
	if err != nil {
		return err
	}
	v, err := newShopView(shop)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(v)
}

// getShop returns one shop through the point cache.
//
// @Summary Get shop
// @Tags shops
// @Produce json
// @Param id path string true "shop id"
// @Success 200 {object} shopView
// @Failure 404 {object} errorPayload
// @Router /shops/{id} [get]
func (h *Handler) getShop(c *fiber.Ctx) error {
	shop, src, err := h.Shops.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	v, err := newShopView(shop)
	if err != nil {
		return err
	}
	c.Set(cacheHeader, string(src))
	return c.JSON(v)
}

// listShops pages through shops, optionally by owner and open status.
//
// @Summary List shops
// @Tags shops
// @Produce json
// @Param owner_id query string false "owner id"
// @Param is_open query bool false "open status"
// @Param limit query int false "page size"
// @Param offset query int false "page offset"
// @Success 200 {object} listResponse[shopView]
// @Failure 400 {object} errorPayload
// @Failure 429 {object} errorPayload
// @Router /shops [get]
func (h *Handler) listShops(c *fiber.Ctx) error {
	limit, offset, err := pageParams(c)
	if err != nil {
		return err
	}
	open, err := queryBool(c, "is_open")
	if err != nil {
		return err
	}
	f := service.ShopFilter{OwnerID: c.Query("owner_id"), IsOpen: open}
	shops, err := h.Shops.List(c.UserContext(), f, limit, offset)
	if err != nil {
		return err
	}
	views, err := newShopViews(shops)
	if err != nil {
		return err
	}
	return c.JSON(listResponse[shopView]{Data: views, Limit: limit, Offset: offset})
}

// updateShop changes the given fields. Only the owner or an admin may call it.
// X-Noop: true marks a request that changed nothing.
//
// @Summary Update shop
// @Tags shops
// @Accept json
// @Produce json
// @Param id path string true "shop id"
// @Param body body updateShopRequest true "fields to change"
// @Success 200 {object} shopView
// @Failure 403 {object} errorPayload
// @Router /shops/{id} [patch]
func (h *Handler) updateShop(c *fiber.Ctx) error {
	who, err := identity(c)
	if err != nil {
		return err
	}
	var req updateShopRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	shop, noop, err := h.Shops.Update(c.UserContext(), who, c.Params("id"), req)
	if err != nil {
		return err
	}
	v, err := newShopView(shop)
	if err != nil {
		return err
	}
	markNoop(c, noop)
	return c.JSON(v)
}

func (h *Handler) deleteShop(c *fiber.Ctx) error {
	who, err := identity(c)
	if err != nil {
		return err
	}
	shop, err := h.Shops.Delete(c.UserContext(), who, c.Params("id"))
	if err != nil {
		return err
	}
	v, err := newShopView(shop)
	if err != nil {
		return err
	}
	return c.JSON(v)
}

// nearbyShops lists shops around a point, nearest first.
//
// @Summary Nearby shops
// @Tags shops
// @Produce json
// @Param lat query number true "latitude"
// @Param lon query number true "longitude"
// @Param radius_km query number false "radius in km" default(5)
// @Param limit query int false "max results" default(10)
// @Param open query bool false "only open shops"
// @Success 200 {array} nearbyView
// @Router /shops/nearby [get]
func (h *Handler) nearbyShops(c *fiber.Ctx) error {
	lat, err := queryFloat(c, "lat")
	if err != nil {
		return err
	}
	lon, err := queryFloat(c, "lon")
	if err != nil {
		return err
	}
	radius := 5.0
	if c.Query("radius_km") != "" {
		if radius, err = queryFloat(c, "radius_km"); err != nil {
			return err
		}
	}
	limit, err := queryInt(c, "limit", 10)
	if err != nil {
		return err
	}

	hits, err := h.Shops.Nearby(c.UserContext(), search.NearbyQuery{
		Lat:      lat,
		Lon:      lon,
		RadiusKM: radius,
		Limit:    limit,
		OpenOnly: c.QueryBool("open", false),
	})
	if err != nil {
		return err
	}
	views, err := newNearbyViews(hits)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": views})
}
