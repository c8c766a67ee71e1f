// Package memory provides the in-memory parity backend used when the portal
// runs without a database (dev-bypass mode). It mirrors the query shapes of
// the PostgreSQL store so handlers behave identically against either.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hopebridge/donor-portal/internal/rbac"
	"github.com/hopebridge/donor-portal/internal/store"
)

// Store is a process-wide in-memory implementation of store.Backend. All
// operations are synchronous; the mutex is never held across I/O.
type Store struct {
	mu sync.RWMutex

	users     map[string]store.User
	roles     map[string][]string
	gifts     map[string]store.Gift
	recurring map[string]store.RecurringGift
	content   map[string]store.ContentItem
	activity  map[string]store.ActivityEvent
	overrides map[string]store.DashboardOverride
	audit     []store.AuditEntry
	auditIDs  map[string]struct{}

	active string
	now    func() time.Time
}

var _ store.Backend = (*Store)(nil)

// Option customises a Store.
type Option func(*Store)

// WithClock overrides the time source used for generated timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// New builds a Store from seed. Identifiers must be unique per collection.
func New(seed Seed, opts ...Option) (*Store, error) {
	s := &Store{
		users:     make(map[string]store.User, len(seed.Users)),
		roles:     make(map[string][]string, len(seed.Users)),
		gifts:     make(map[string]store.Gift, len(seed.Gifts)),
		recurring: make(map[string]store.RecurringGift, len(seed.RecurringGifts)),
		content:   make(map[string]store.ContentItem, len(seed.Content)),
		activity:  make(map[string]store.ActivityEvent, len(seed.Activity)),
		overrides: make(map[string]store.DashboardOverride, len(seed.Overrides)),
		auditIDs:  make(map[string]struct{}),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	for _, su := range seed.Users {
		if _, dup := s.users[su.User.ID]; dup || su.User.ID == "" {
			return nil, fmt.Errorf("memory: seed user %q: %w", su.User.ID, store.ErrDuplicate)
		}
		s.users[su.User.ID] = su.User
		s.roles[su.User.ID] = roleNames(rbac.NormalizeRoles(su.Roles))
	}
	for _, g := range seed.Gifts {
		if _, dup := s.gifts[g.ID]; dup || g.ID == "" {
			return nil, fmt.Errorf("memory: seed gift %q: %w", g.ID, store.ErrDuplicate)
		}
		s.gifts[g.ID] = g
	}
	for _, rg := range seed.RecurringGifts {
		if _, dup := s.recurring[rg.ID]; dup || rg.ID == "" {
			return nil, fmt.Errorf("memory: seed recurring gift %q: %w", rg.ID, store.ErrDuplicate)
		}
		s.recurring[rg.ID] = rg
	}
	for _, c := range seed.Content {
		if _, dup := s.content[c.ID]; dup || c.ID == "" {
			return nil, fmt.Errorf("memory: seed content %q: %w", c.ID, store.ErrDuplicate)
		}
		s.content[c.ID] = c
	}
	for _, a := range seed.Activity {
		if _, dup := s.activity[a.ID]; dup || a.ID == "" {
			return nil, fmt.Errorf("memory: seed activity %q: %w", a.ID, store.ErrDuplicate)
		}
		s.activity[a.ID] = a
	}
	for _, o := range seed.Overrides {
		s.overrides[o.UserID] = o
	}

	s.active = seed.ActiveIdentity
	if s.active != "" {
		if _, ok := s.users[s.active]; !ok {
			return nil, fmt.Errorf("memory: active identity %q: %w", s.active, store.ErrNotFound)
		}
	}
	return s, nil
}

// ActiveIdentity returns the user id standing in for a session.
func (s *Store) ActiveIdentity() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// SetActiveIdentity switches the substituted identity to an existing user.
func (s *Store) SetActiveIdentity(id string) error {
	id = strings.TrimSpace(id)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return store.ErrNotFound
	}
	s.active = id
	return nil
}

// GetUser returns the user with id.
func (s *Store) GetUser(_ context.Context, id string) (store.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return store.User{}, store.ErrNotFound
	}
	return u, nil
}

// GetRoles returns the role names assigned to id, empty for unknown users.
func (s *Store) GetRoles(_ context.Context, id string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string{}, s.roles[id]...), nil
}

// ListUsers returns every user ordered by email.
func (s *Store) ListUsers(_ context.Context) ([]store.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]store.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

// FindUserByEmail looks a user up case-insensitively.
func (s *Store) FindUserByEmail(_ context.Context, email string) (store.User, error) {
	email = strings.TrimSpace(email)
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return store.User{}, store.ErrNotFound
}

// SetUserRoles replaces the role assignments of id. Names outside the role
// catalog are dropped, matching what the live backend accepts.
func (s *Store) SetUserRoles(_ context.Context, id string, roles []string) ([]string, error) {
	normalized := roleNames(rbac.NormalizeRoles(roles))
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return nil, store.ErrNotFound
	}
	s.roles[id] = normalized
	return append([]string{}, normalized...), nil
}

// InsertAudit appends an audit entry.
func (s *Store) InsertAudit(_ context.Context, entry store.AuditEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = s.now().UTC()
	}
	entry.Details = copyDetails(entry.Details)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.auditIDs[entry.ID]; dup {
		return store.ErrDuplicate
	}
	s.auditIDs[entry.ID] = struct{}{}
	s.audit = append(s.audit, entry)
	return nil
}

// ListAudit returns matching entries newest first.
func (s *Store) ListAudit(_ context.Context, filter store.AuditFilter) ([]store.AuditEntry, error) {
	s.mu.RLock()
	matched := make([]store.AuditEntry, 0, len(s.audit))
	for i := len(s.audit) - 1; i >= 0; i-- {
		e := s.audit[i]
		if filter.ActorUserID != "" && e.ActorUserID != filter.ActorUserID {
			continue
		}
		if filter.EntityType != "" && e.EntityType != filter.EntityType {
			continue
		}
		if filter.EntityID != "" && e.EntityID != filter.EntityID {
			continue
		}
		if filter.Action != "" && e.Action != filter.Action {
			continue
		}
		e.Details = copyDetails(e.Details)
		matched = append(matched, e)
	}
	s.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool { return matched[i].Timestamp.After(matched[j].Timestamp) })
	return paginate(matched, filter.Offset, filter.Limit), nil
}

// ListGifts returns the gifts of userID, most recent first.
func (s *Store) ListGifts(_ context.Context, userID string) ([]store.Gift, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]store.Gift, 0)
	for _, g := range s.gifts {
		if g.UserID == userID {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].GivenAt.Equal(out[j].GivenAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].GivenAt.After(out[j].GivenAt)
	})
	return out, nil
}

// ListRecurringGifts returns the recurring plans of userID, newest first.
func (s *Store) ListRecurringGifts(_ context.Context, userID string) ([]store.RecurringGift, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]store.RecurringGift, 0)
	for _, rg := range s.recurring {
		if rg.UserID == userID {
			out = append(out, rg)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// CancelRecurringGift marks the plan id owned by userID as cancelled. Only
// the status changes. The prior status is compared under the write lock, so
// exactly one of several concurrent callers sees changed == true.
func (s *Store) CancelRecurringGift(_ context.Context, userID, id string) (store.RecurringGift, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rg, ok := s.recurring[id]
	if !ok || rg.UserID != userID {
		return store.RecurringGift{}, false, store.ErrNotFound
	}
	if rg.Status == store.RecurringCancelled {
		return rg, false, nil
	}
	rg.Status = store.RecurringCancelled
	s.recurring[id] = rg
	return rg, true, nil
}

// ListContent returns content ordered by sort order then title.
func (s *Store) ListContent(_ context.Context, filter store.ContentFilter) ([]store.ContentItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]store.ContentItem, 0, len(s.content))
	for _, c := range s.content {
		if filter.Kind != "" && c.Kind != filter.Kind {
			continue
		}
		if filter.PublishedOnly && !c.Published {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].Title < out[j].Title
	})
	return out, nil
}

// UpdateContent applies update to the content item id.
func (s *Store) UpdateContent(_ context.Context, id string, update store.ContentUpdate) (store.ContentItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.content[id]
	if !ok {
		return store.ContentItem{}, store.ErrNotFound
	}
	if update.Title != nil {
		c.Title = *update.Title
	}
	if update.Summary != nil {
		c.Summary = *update.Summary
	}
	if update.URL != nil {
		c.URL = *update.URL
	}
	if update.Published != nil {
		c.Published = *update.Published
	}
	if update.SortOrder != nil {
		c.SortOrder = *update.SortOrder
	}
	c.UpdatedBy = update.UpdatedBy
	c.UpdatedAt = s.now().UTC()
	s.content[id] = c
	return c, nil
}

// ListActivity returns the newest limit events of userID. limit <= 0 means
// no limit.
func (s *Store) ListActivity(_ context.Context, userID string, limit int) ([]store.ActivityEvent, error) {
	s.mu.RLock()
	out := make([]store.ActivityEvent, 0)
	for _, a := range s.activity {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].OccurredAt.Equal(out[j].OccurredAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].OccurredAt.After(out[j].OccurredAt)
	})
	return paginate(out, 0, limit), nil
}

// InsertActivity appends an event, assigning an id and timestamp if unset.
func (s *Store) InsertActivity(_ context.Context, event store.ActivityEvent) (store.ActivityEvent, error) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = s.now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.activity[event.ID]; dup {
		return store.ActivityEvent{}, store.ErrDuplicate
	}
	s.activity[event.ID] = event
	return event, nil
}

// GetDashboardOverride returns the override for userID.
func (s *Store) GetDashboardOverride(_ context.Context, userID string) (store.DashboardOverride, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.overrides[userID]
	if !ok {
		return store.DashboardOverride{}, store.ErrNotFound
	}
	return o, nil
}

// SetDashboardOverride upserts the override of an existing user.
func (s *Store) SetDashboardOverride(_ context.Context, override store.DashboardOverride) (store.DashboardOverride, error) {
	if override.UpdatedAt.IsZero() {
		override.UpdatedAt = s.now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[override.UserID]; !ok {
		return store.DashboardOverride{}, store.ErrNotFound
	}
	s.overrides[override.UserID] = override
	return override, nil
}

func roleNames(roles []rbac.Role) []string {
	out := make([]string, len(roles))
	for i, r := range roles {
		out[i] = string(r)
	}
	return out
}

func copyDetails(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func paginate[T any](rows []T, offset, limit int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(rows) {
		return []T{}
	}
	rows = rows[offset:]
	if limit > 0 && limit < len(rows) {
		rows = rows[:limit]
	}
	return rows
}
