package rbac

import (
	"context"
	"errors"
)

var (
	// ErrUnauthenticated indicates that no resolvable identity was supplied.
	ErrUnauthenticated = errors.New("rbac: unauthenticated")
	// ErrForbidden indicates that the identity lacks the required permission.
	ErrForbidden = errors.New("rbac: forbidden")
	// ErrBackendUnavailable indicates that authorization facts could not be loaded.
	ErrBackendUnavailable = errors.New("rbac: backend unavailable")
	// ErrUnknownPermission indicates a permission name outside the catalog.
	ErrUnknownPermission = errors.New("rbac: unknown permission")
)

// AccessContext is the resolved authorization state of one user at one point
// in time. It is never cached across requests.
type AccessContext struct {
	UserID      string       `json:"user_id"`
	IsAdmin     bool         `json:"is_admin"`
	Roles       []Role       `json:"roles"`
	Permissions []Permission `json:"permissions"`
}

// Has reports whether the context grants perm.
func (a AccessContext) Has(perm Permission) bool {
	for _, p := range a.Permissions {
		if p == perm {
			return true
		}
	}
	return false
}

// HasRole reports whether role is among the normalized roles.
func (a AccessContext) HasRole(role Role) bool {
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}

type accessContextKey struct{}

// ContextWithAccess stores the resolved access in ctx.
func ContextWithAccess(ctx context.Context, access AccessContext) context.Context {
	return context.WithValue(ctx, accessContextKey{}, access)
}

// AccessFromContext returns the access resolved earlier in the request.
func AccessFromContext(ctx context.Context) (AccessContext, bool) {
	access, ok := ctx.Value(accessContextKey{}).(AccessContext)
	return access, ok
}
