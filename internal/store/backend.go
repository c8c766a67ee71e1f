// Package store defines the portal entities and the backend contract shared
// by the live PostgreSQL store and the in-memory parity store.
package store

import (
	"context"
	"fmt"

	"github.com/hopebridge/donor-portal/internal/platform/httpx"
)

var (
	// ErrNotFound indicates that the requested record does not exist.
	ErrNotFound = fmt.Errorf("store: %w", httpx.ErrNotFound)
	// ErrDuplicate indicates an identifier collision within a collection.
	ErrDuplicate = fmt.Errorf("store: %w", httpx.ErrDuplicate)
)

// UserReader exposes the authorization facts consumed by the role resolver.
type UserReader interface {
	GetUser(ctx context.Context, id string) (User, error)
	// GetRoles returns an empty slice for unknown users.
	GetRoles(ctx context.Context, id string) ([]string, error)
}

// AuditWriter appends audit entries.
type AuditWriter interface {
	InsertAudit(ctx context.Context, entry AuditEntry) error
}

// AuditReader lists audit entries newest first.
type AuditReader interface {
	ListAudit(ctx context.Context, filter AuditFilter) ([]AuditEntry, error)
}

// Backend is the full data surface route handlers depend on. Both the live
// store and the parity store implement it so handlers are backend agnostic.
type Backend interface {
	UserReader
	AuditWriter
	AuditReader

	ListUsers(ctx context.Context) ([]User, error)
	FindUserByEmail(ctx context.Context, email string) (User, error)
	SetUserRoles(ctx context.Context, id string, roles []string) ([]string, error)

	ListGifts(ctx context.Context, userID string) ([]Gift, error)
	ListRecurringGifts(ctx context.Context, userID string) ([]RecurringGift, error)
	// CancelRecurringGift reports whether this call moved the plan to
	// cancelled; false means it already was.
	CancelRecurringGift(ctx context.Context, userID, id string) (RecurringGift, bool, error)

	ListContent(ctx context.Context, filter ContentFilter) ([]ContentItem, error)
	UpdateContent(ctx context.Context, id string, update ContentUpdate) (ContentItem, error)

	ListActivity(ctx context.Context, userID string, limit int) ([]ActivityEvent, error)
	InsertActivity(ctx context.Context, event ActivityEvent) (ActivityEvent, error)

	GetDashboardOverride(ctx context.Context, userID string) (DashboardOverride, error)
	SetDashboardOverride(ctx context.Context, override DashboardOverride) (DashboardOverride, error)
}
