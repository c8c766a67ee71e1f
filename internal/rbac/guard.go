package rbac

import "context"

// Guard answers single-permission questions for a user.
type Guard struct {
	resolver *Resolver
}

// NewGuard constructs a Guard on top of resolver.
func NewGuard(resolver *Resolver) *Guard {
	return &Guard{resolver: resolver}
}

// Authorize reports whether userID holds perm. Resolution failures are
// returned unchanged so callers can tell "forbidden" from "could not
// evaluate".
func (g *Guard) Authorize(ctx context.Context, userID string, perm Permission) (bool, error) {
	_, ok, err := g.Check(ctx, userID, perm)
	return ok, err
}

// Check is Authorize that also returns the resolved access.
func (g *Guard) Check(ctx context.Context, userID string, perm Permission) (AccessContext, bool, error) {
	if !IsValidPermission(string(perm)) {
		return AccessContext{}, false, ErrUnknownPermission
	}
	access, err := g.resolver.Resolve(ctx, userID)
	if err != nil {
		return AccessContext{}, false, err
	}
	return access, access.Has(perm), nil
}

// Resolve exposes the underlying resolver for routes that need the full
// access context without a specific permission.
func (g *Guard) Resolve(ctx context.Context, userID string) (AccessContext, error) {
	return g.resolver.Resolve(ctx, userID)
}
