// Package content lists portal courses, articles and videos and lets content
// managers edit them.
package content

import (
	"context"
	"fmt"
	"sort"

	"github.com/hopebridge/donor-portal/internal/audit"
	"github.com/hopebridge/donor-portal/internal/platform/httpx"
	"github.com/hopebridge/donor-portal/internal/store"
)

// ErrUnknownKind indicates a content kind outside course, article and video.
var ErrUnknownKind = fmt.Errorf("content: unknown kind: %w", httpx.ErrValidation)

// ErrEmptyUpdate indicates an update that changes nothing.
var ErrEmptyUpdate = fmt.Errorf("content: no fields to update: %w", httpx.ErrValidation)

// Repository is the content slice of store.Backend.
type Repository interface {
	ListContent(ctx context.Context, filter store.ContentFilter) ([]store.ContentItem, error)
	UpdateContent(ctx context.Context, id string, update store.ContentUpdate) (store.ContentItem, error)
}

// AuditRecorder records privileged actions.
type AuditRecorder interface {
	Record(ctx context.Context, ev audit.Event)
}

// Service implements content use cases.
type Service struct {
	repo  Repository
	audit AuditRecorder
}

// NewService constructs a content service.
func NewService(repo Repository, recorder AuditRecorder) *Service {
	return &Service{repo: repo, audit: recorder}
}

// ValidKind reports whether kind is empty or a known content kind.
func ValidKind(kind string) bool {
	switch kind {
	case "", store.ContentCourse, store.ContentArticle, store.ContentVideo:
		return true
	}
	return false
}

// Published lists published items, optionally of one kind.
func (s *Service) Published(ctx context.Context, kind string) ([]store.ContentItem, error) {
	return s.list(ctx, store.ContentFilter{Kind: kind, PublishedOnly: true})
}

// All lists every item including drafts.
func (s *Service) All(ctx context.Context, kind string) ([]store.ContentItem, error) {
	return s.list(ctx, store.ContentFilter{Kind: kind})
}

func (s *Service) list(ctx context.Context, filter store.ContentFilter) ([]store.ContentItem, error) {
	if !ValidKind(filter.Kind) {
		return nil, ErrUnknownKind
	}
	items, err := s.repo.ListContent(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("content: list: %w", err)
	}
	return items, nil
}

// Update applies update to item id on behalf of actorID and audits the
// changed fields.
func (s *Service) Update(ctx context.Context, actorID, id string, update store.ContentUpdate) (store.ContentItem, error) {
	fields := changedFields(update)
	if len(fields) == 0 {
		return store.ContentItem{}, ErrEmptyUpdate
	}
	update.UpdatedBy = actorID
	item, err := s.repo.UpdateContent(ctx, id, update)
	if err != nil {
		return store.ContentItem{}, fmt.Errorf("content: update %s: %w", id, err)
	}
	if s.audit != nil {
		s.audit.Record(ctx, audit.Event{
			ActorID:    actorID,
			Action:     "content.update",
			EntityType: "content",
			EntityID:   id,
			Details:    map[string]any{"fields": fields, "published": item.Published},
		})
	}
	return item, nil
}

func changedFields(u store.ContentUpdate) []string {
	var fields []string
	if u.Title != nil {
		fields = append(fields, "title")
	}
	if u.Summary != nil {
		fields = append(fields, "summary")
	}
	if u.URL != nil {
		fields = append(fields, "url")
	}
	if u.Published != nil {
		fields = append(fields, "published")
	}
	if u.SortOrder != nil {
		fields = append(fields, "sort_order")
	}
	sort.Strings(fields)
	return fields
}
