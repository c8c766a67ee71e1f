package rbac

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/hopebridge/donor-portal/internal/store"
)

// Resolver computes AccessContext values from backend authorization facts.
// It holds no state between calls.
type Resolver struct {
	users store.UserReader
}

// NewResolver constructs a Resolver backed by users.
func NewResolver(users store.UserReader) *Resolver {
	return &Resolver{users: users}
}

// Resolve loads the admin flag and role assignments for userID and computes
// the effective permissions. The identifier must already be authenticated.
func (r *Resolver) Resolve(ctx context.Context, userID string) (AccessContext, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return AccessContext{}, ErrUnauthenticated
	}
	if r == nil || r.users == nil {
		return AccessContext{}, fmt.Errorf("%w: resolver not configured", ErrBackendUnavailable)
	}

	var (
		user              store.User
		rawRoles          []string
		userErr, rolesErr error
		g                 errgroup.Group
	)
	g.Go(func() error {
		user, userErr = r.users.GetUser(ctx, userID)
		return nil
	})
	g.Go(func() error {
		rawRoles, rolesErr = r.users.GetRoles(ctx, userID)
		return nil
	})
	_ = g.Wait()

	// A failing backend outranks a missing user whichever lookup finished first.
	for _, err := range []error{userErr, rolesErr} {
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return AccessContext{}, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
		}
	}
	if userErr != nil || rolesErr != nil {
		return AccessContext{}, ErrUnauthenticated
	}

	roles := NormalizeRoles(rawRoles)
	return AccessContext{
		UserID:      userID,
		IsAdmin:     user.IsAdmin,
		Roles:       roles,
		Permissions: permissionsFor(user.IsAdmin, roles),
	}, nil
}
