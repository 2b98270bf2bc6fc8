// Package auth verifies session tokens and attaches the caller's identity to
// the request. Authorization by role is a separate middleware.
package auth

import (
	"context"

	"marketapi/internal/model"
)

// IdentityLocalKey is the fiber Locals key holding the Identity.
const IdentityLocalKey = "identity"

// Identity is the authenticated caller.
type Identity struct {
	Subject string
	Role    model.Role
	Token   string
}

// HasRole reports whether the identity holds one of roles.
func (i Identity) HasRole(roles ...model.Role) bool {
	for _, r := range roles {
		if i.Role == r {
			return true
		}
	}
	return false
}

type identityKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}
