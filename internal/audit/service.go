package audit

import (
	"context"
	"fmt"
	"strings"

	"github.com/hopebridge/donor-portal/internal/store"
)

const (
	defaultPageSize = 20
	maxPageSize     = 50
	maxExportRows   = 5000
)

// Service mengoordinasikan pengambilan data audit.
type Service struct {
	repo store.AuditReader
}

// NewService membuat service audit timeline baru.
func NewService(repo store.AuditReader) *Service {
	return &Service{repo: repo}
}

// Timeline mengambil data audit dengan paging.
func (s *Service) Timeline(ctx context.Context, filters TimelineFilters) (Result, error) {
	if s == nil || s.repo == nil {
		return Result{}, fmt.Errorf("audit: repository not configured")
	}
	pageSize := filters.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	page := filters.Page
	if page <= 0 {
		page = 1
	}
	filter := toStoreFilter(filters)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize + 1
	rows, err := s.repo.ListAudit(ctx, filter)
	if err != nil {
		return Result{}, fmt.Errorf("audit: timeline: %w", err)
	}
	hasNext := len(rows) > pageSize
	if hasNext {
		rows = rows[:pageSize]
	}
	paging := PagingInfo{Page: page, PageSize: pageSize, HasNext: hasNext}
	if page > 1 {
		paging.PrevPage = page - 1
	}
	if hasNext {
		paging.NextPage = page + 1
	}
	return Result{Rows: rows, Paging: paging}, nil
}

// Export mengambil seluruh data timeline tanpa paging.
func (s *Service) Export(ctx context.Context, filters TimelineFilters) ([]store.AuditEntry, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("audit: repository not configured")
	}
	filter := toStoreFilter(filters)
	filter.Limit = maxExportRows
	rows, err := s.repo.ListAudit(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("audit: export: %w", err)
	}
	return rows, nil
}

// Trail returns the audit history of a single entity, newest first.
func (s *Service) Trail(ctx context.Context, entityType, entityID string) ([]store.AuditEntry, error) {
	return s.Export(ctx, TimelineFilters{Entity: entityType, EntityID: entityID})
}

func toStoreFilter(filters TimelineFilters) store.AuditFilter {
	return store.AuditFilter{
		ActorUserID: strings.TrimSpace(filters.Actor),
		EntityType:  strings.TrimSpace(filters.Entity),
		EntityID:    strings.TrimSpace(filters.EntityID),
		Action:      strings.TrimSpace(filters.Action),
	}
}
