package audit

import "github.com/hopebridge/donor-portal/internal/store"

// TimelineFilters menampung filter dasar untuk audit timeline.
type TimelineFilters struct {
	Actor    string
	Entity   string
	EntityID string
	Action   string
	Page     int
	PageSize int
}

// PagingInfo menyimpan metadata pagination sederhana.
type PagingInfo struct {
	Page     int  `json:"page"`
	HasNext  bool `json:"has_next"`
	PageSize int  `json:"page_size"`
	PrevPage int  `json:"prev_page,omitempty"`
	NextPage int  `json:"next_page,omitempty"`
}

// Result membungkus hasil timeline dengan informasi paging.
type Result struct {
	Rows   []store.AuditEntry
	Paging PagingInfo
}
