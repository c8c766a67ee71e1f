package users

import (
	"fmt"
	"time"

	"github.com/hopebridge/donor-portal/internal/platform/httpx"
	"github.com/hopebridge/donor-portal/internal/store"
)

// DefaultDashboard is shown to users without an override.
const DefaultDashboard = store.DashboardDonor

// ErrUnknownRole indicates a role assignment naming a role outside the catalog.
var ErrUnknownRole = fmt.Errorf("users: unknown role: %w", httpx.ErrValidation)

// ErrUnknownDashboard indicates a dashboard variant that does not exist.
var ErrUnknownDashboard = fmt.Errorf("users: unknown dashboard: %w", httpx.ErrValidation)

// Account is a user together with its role assignments.
type Account struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	IsAdmin   bool      `json:"is_admin"`
	IsActive  bool      `json:"is_active"`
	Roles     []string  `json:"roles"`
	CreatedAt time.Time `json:"created_at"`
}

// Dashboard is the dashboard variant a user sees.
type Dashboard struct {
	UserID     string     `json:"user_id"`
	Role       string     `json:"dashboard_role"`
	Overridden bool       `json:"overridden"`
	UpdatedBy  string     `json:"updated_by,omitempty"`
	UpdatedAt  *time.Time `json:"updated_at,omitempty"`
}

// ValidDashboard reports whether role names a dashboard variant.
func ValidDashboard(role string) bool {
	switch role {
	case store.DashboardDonor, store.DashboardPartner, store.DashboardChurch:
		return true
	}
	return false
}
