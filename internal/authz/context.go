package authz

import "context"

type identityContextKey struct{}

// ContextWithIdentity stores the resolved identity in context. The gate
// installs it exactly once, after the capability check passes.
func ContextWithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, id)
}

// IdentityFromContext extracts the identity installed by the gate.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityContextKey{}).(Identity)
	return id, ok
}
