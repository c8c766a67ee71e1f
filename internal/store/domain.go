package store

import "time"

// User is a portal account as returned by the backend.
type User struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	IsAdmin      bool
	IsActive     bool
	CreatedAt    time.Time
}

// Gift is a single completed donation.
type Gift struct {
	ID          string
	UserID      string
	AmountCents int64
	Currency    string
	Fund        string
	Method      string
	GivenAt     time.Time
}

// Recurring gift statuses.
const (
	RecurringActive    = "active"
	RecurringPaused    = "paused"
	RecurringCancelled = "cancelled"
)

// RecurringGift is a scheduled donation plan.
type RecurringGift struct {
	ID           string
	UserID       string
	AmountCents  int64
	Currency     string
	Fund         string
	Interval     string
	Status       string
	NextChargeAt time.Time
	CreatedAt    time.Time
}

// Content kinds.
const (
	ContentCourse  = "course"
	ContentArticle = "article"
	ContentVideo   = "video"
)

// ContentItem is a course, article or video visible in the portal.
type ContentItem struct {
	ID        string
	Kind      string
	Title     string
	Summary   string
	URL       string
	Published bool
	SortOrder int
	UpdatedBy string
	UpdatedAt time.Time
}

// ContentFilter narrows content listings.
type ContentFilter struct {
	Kind          string
	PublishedOnly bool
}

// ContentUpdate carries the mutable fields of a content item. Nil fields are
// left untouched.
type ContentUpdate struct {
	Title     *string
	Summary   *string
	URL       *string
	Published *bool
	SortOrder *int
	UpdatedBy string
}

// ActivityEvent is one entry of a user's activity feed.
type ActivityEvent struct {
	ID         string
	UserID     string
	Kind       string
	Message    string
	OccurredAt time.Time
}

// Dashboard roles a user can be shown.
const (
	DashboardDonor   = "donor"
	DashboardPartner = "partner"
	DashboardChurch  = "church"
)

// DashboardOverride forces the dashboard variant shown to a user.
type DashboardOverride struct {
	UserID        string
	DashboardRole string
	UpdatedBy     string
	UpdatedAt     time.Time
}

// AuditEntry is an immutable record of a privileged action.
type AuditEntry struct {
	ID          string
	ActorUserID string
	Action      string
	EntityType  string
	EntityID    string
	Details     map[string]any
	Timestamp   time.Time
}

// AuditFilter narrows audit listings. Empty fields match everything.
type AuditFilter struct {
	ActorUserID string
	EntityType  string
	EntityID    string
	Action      string
	Offset      int
	Limit       int
}
