package handler

import (
	"github.com/gofiber/fiber/v2"
)

// triggerReindex starts a full index rebuild in the background.
//
// @Summary Trigger reindex
// @Tags admin
// @Produce json
// @Success 202 {object} map[string]string
// @Failure 409 {object} errorPayload
// @Router /admin/reindex [post]
func (h *Handler) triggerReindex(c *fiber.Ctx) error {
	runID, err := h.Reindex.Trigger(c.UserContext())
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"run_id": runID, "status": "accepted"})
}

// @Summary Reindex status
// @Tags admin
// @Produce json
// @Success 200 {object} model.SyncJob
// @Router /admin/reindex [get]
func (h *Handler) reindexStatus(c *fiber.Ctx) error {
	job, err := h.Reindex.Status(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(job)
}

func (h *Handler) cancelReindex(c *fiber.Ctx) error {
	runID, err := h.Reindex.Cancel()
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"run_id": runID, "status": "cancelling"})
}
