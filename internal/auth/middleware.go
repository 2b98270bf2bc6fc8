package auth

import (
	"github.com/gofiber/fiber/v2"

	"marketapi/internal/apperr"
	"marketapi/internal/model"
)

// RequireSession authenticates the session cookie named cookieName and stores
// the Identity in Locals and in the user context.
func (g *Gate) RequireSession(cookieName string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, id, err := g.Authenticate(c.UserContext(), c.Cookies(cookieName))
		if err != nil {
			return err
		}
		c.Locals(IdentityLocalKey, id)
		c.SetUserContext(ctx)
		return c.Next()
	}
}

// RequireRole rejects callers whose role is not in roles. It must run after
// RequireSession.
func RequireRole(roles ...model.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := IdentityFrom(c)
		if !ok {
			return apperr.Auth("auth.require_role", "missing/invalid token")
		}
		if !id.HasRole(roles...) {
			return apperr.Forbidden("auth.require_role", "role not allowed for this operation")
		}
		return c.Next()
	}
}

// IdentityFrom returns the identity stored by RequireSession.
func IdentityFrom(c *fiber.Ctx) (Identity, bool) {
	id, ok := c.Locals(IdentityLocalKey).(Identity)
	return id, ok
}
