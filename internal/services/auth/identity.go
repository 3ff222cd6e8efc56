package auth

import (
	"context"

	"github.com/mcoot/teamroster/internal/model"
)

// Identity is the authenticated caller of a request, resolved from a
// verified session token
type Identity struct {
	UserID model.UserID
	Role   model.Role
}

type identityKey struct{}

// WithIdentity returns a copy of ctx carrying id
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext returns the identity stored by WithIdentity
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}
