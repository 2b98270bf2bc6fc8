package handler

import "github.com/gofiber/fiber/v2"

// stats returns platform-wide counts. It needs no session.
//
// @Summary Platform statistics
// @Tags stats
// @Produce json
// @Success 200 {object} service.PlatformStats
// @Failure 429 {object} errorPayload
// @Router /stats [get]
func (h *Handler) stats(c *fiber.Ctx) error {
	st, err := h.Stats.Platform(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(st)
}
