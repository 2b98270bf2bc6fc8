package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

// HealthCheck is one dependency checked by /health.
type HealthCheck struct {
	Name string
	Ping func(ctx context.Context) error
	// Optional checks are reported but do not fail the check.
	Optional bool
}

// health reports dependency status. It answers 503 when a required check fails.
//
// @Summary Dependency health
// @Tags health
// @Produce json
// @Success 200 {object} map[string]any
// @Failure 503 {object} errorPayload
// @Router /health [get]
func (h *Handler) health(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	checks := make(map[string]string, len(h.Health))
	healthy := true
	for _, hc := range h.Health {
		if err := hc.Ping(ctx); err != nil {
			checks[hc.Name] = "down"
			if !hc.Optional {
				healthy = false
			}
			continue
		}
		checks[hc.Name] = "up"
	}
	if !healthy {
		return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "dependency unavailable")
	}
	return c.JSON(fiber.Map{"status": "healthy", "checks": checks})
}

func liveness(c *fiber.Ctx) error {
	return c.SendStatus(fiber.StatusOK)
}
