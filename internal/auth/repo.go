package auth

import (
	"context"

	"github.com/hopebridge/donor-portal/internal/store"
)

// Repository defines persistence operations for auth module.
type Repository interface {
	FindUserByEmail(ctx context.Context, email string) (store.User, error)
}

// IdentitySwitcher selects the single active identity of the parity store.
type IdentitySwitcher interface {
	ActiveIdentity() string
	SetActiveIdentity(id string) error
}
