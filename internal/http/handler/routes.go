package handler

import (
	"context"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"marketapi/internal/apperr"
	"marketapi/internal/auth"
	"marketapi/internal/model"
	"marketapi/internal/service"
)

// Reindexer controls the full index rebuild.
type Reindexer interface {
	Trigger(ctx context.Context) (string, error)
	Status(ctx context.Context) (*model.SyncJob, error)
	Cancel() (string, error)
}

// Handler holds the HTTP handlers and their collaborators.
type Handler struct {
	Shops     service.ShopService
	Items     service.ItemService
	Inventory service.InventoryService
	Accounts  service.AccountService
	Search    service.SearchService
	Stats     service.StatsService
	Reindex   Reindexer
	Health    []HealthCheck
	Cookie    auth.CookieOptions

	// RateLimit caps the public listing endpoints per client IP and minute.
	// Zero disables the limit.
	RateLimit int

	// Session authenticates the request and stores the caller's Identity,
	// normally (*auth.Gate).RequireSession.
	Session fiber.Handler
}

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
func RegisterRoutes(app *fiber.App, h *Handler) {
	app.Get("/health", h.health)
	app.Get("/healthz", liveness)
	app.Get("/stats", h.limit(), h.stats)

	a := app.Group("/auth")
	a.Post("/register", h.register)
	a.Post("/login", h.login)
	a.Post("/logout", h.Session, h.logout)
	a.Get("/me", h.Session, h.me)

	sellers := auth.RequireRole(model.RoleVendor, model.RoleAdmin)

	shops := app.Group("/shops", h.Session)
	shops.Get("/", h.limit(), h.listShops)
	shops.Get("/nearby", h.nearbyShops)
	shops.Post("/", sellers, h.createShop)
	shops.Get("/:id", h.getShop)
	shops.Patch("/:id", sellers, h.updateShop)
	shops.Delete("/:id", sellers, h.deleteShop)
	shops.Get("/:id/items", h.limit(), h.listItems)
	shops.Get("/:id/inventory", h.listInventory)

	items := app.Group("/items", h.Session)
	items.Post("/", sellers, h.createItem)
	items.Get("/:id", h.getItem)
	items.Patch("/:id", sellers, h.updateItem)
	items.Delete("/:id", sellers, h.deleteItem)

	inv := app.Group("/inventory", h.Session)
	inv.Post("/", sellers, h.createInventory)
	inv.Get("/:id", h.getInventory)
	inv.Patch("/:id", sellers, h.updateInventory)
	inv.Delete("/:id", sellers, h.deleteInventory)

	s := app.Group("/search", h.Session)
	s.Get("/shops", h.searchShops)
	s.Get("/items", h.searchItems)

	admin := app.Group("/admin", h.Session, auth.RequireRole(model.RoleAdmin))
	admin.Post("/reindex", h.triggerReindex)
	admin.Get("/reindex", h.reindexStatus)
	admin.Delete("/reindex", h.cancelReindex)
}

// limit returns a fresh fixed-window limiter, so every route keeps its own
// budget.
func (h *Handler) limit() fiber.Handler {
	if h.RateLimit <= 0 {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	return limiter.New(limiter.Config{
		Max:          h.RateLimit,
		Expiration:   time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string { return c.IP() },
		LimitReached: func(*fiber.Ctx) error { return fiber.ErrTooManyRequests },
	})
}

func queryBool(c *fiber.Ctx, name string) (*bool, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, apperr.Validation("http.query", "invalid "+name)
	}
	return &b, nil
}

func identity(c *fiber.Ctx) (auth.Identity, error) {
	id, ok := auth.IdentityFrom(c)
	if !ok {
		return auth.Identity{}, apperr.Auth("http.identity", "missing/invalid token")
	}
	return id, nil
}

func bind(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return apperr.Validation("http.bind", "malformed request body")
	}
	return nil
}

func queryInt(c *fiber.Ctx, name string, def int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperr.Validation("http.query", "invalid "+name)
	}
	return n, nil
}

func queryFloat(c *fiber.Ctx, name string) (float64, error) {
	n, err := strconv.ParseFloat(c.Query(name), 64)
	if err != nil {
		return 0, apperr.Validation("http.query", "invalid "+name)
	}
	return n, nil
}

func pageParams(c *fiber.Ctx) (limit, offset int, err error) {
	if limit, err = queryInt(c, "limit", 10); err != nil {
		return 0, 0, err
	}
	if offset, err = queryInt(c, "offset", 0); err != nil {
		return 0, 0, err
	}
	return limit, offset, nil
}

// cacheHeader tells clients whether a point read came from the cache.
const cacheHeader = "X-Cache"

func markNoop(c *fiber.Ctx, noop bool) {
	if noop {
		c.Set("X-Noop", "true")
	}
}
