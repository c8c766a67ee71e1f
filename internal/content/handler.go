package content

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/hopebridge/donor-portal/internal/platform/httpx"
	"github.com/hopebridge/donor-portal/internal/ratelimit"
	"github.com/hopebridge/donor-portal/internal/rbac"
	"github.com/hopebridge/donor-portal/internal/store"
)

// Handler exposes the public and admin content endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	rbac      rbac.Middleware
	limits    ratelimit.Guard
	validator *validator.Validate
}

// NewHandler builds a content handler.
func NewHandler(logger *slog.Logger, service *Service, rbacMW rbac.Middleware, limits ratelimit.Guard) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger,
		service:   service,
		rbac:      rbacMW,
		limits:    limits,
		validator: httpx.NewValidator(),
	}
}

// MountRoutes registers GET /content for any signed-in user.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.rbac.Authenticated()).Get("/", h.listPublished)
}

// MountAdminRoutes registers the content management routes.
func (h *Handler) MountAdminRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.PermManageContent))
		r.Get("/", h.listAll)
		r.With(h.limits.Sensitive("content_update")).Patch("/{id}", h.update)
	})
}

type itemResponse struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Title     string    `json:"title"`
	Summary   string    `json:"summary"`
	URL       string    `json:"url"`
	Published bool      `json:"published"`
	SortOrder int       `json:"sort_order"`
	UpdatedBy string    `json:"updated_by,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

type updateRequest struct {
	Title     *string `json:"title" validate:"omitnil,min=1,max=200"`
	Summary   *string `json:"summary" validate:"omitnil,max=2000"`
	URL       *string `json:"url" validate:"omitnil,uri,max=500"`
	Published *bool   `json:"published"`
	SortOrder *int    `json:"sort_order" validate:"omitnil,min=0,max=10000"`
}

func (h *Handler) listPublished(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.Published(r.Context(), r.URL.Query().Get("kind"))
	h.respondItems(w, items, err)
}

func (h *Handler) listAll(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.All(r.Context(), r.URL.Query().Get("kind"))
	h.respondItems(w, items, err)
}

func (h *Handler) respondItems(w http.ResponseWriter, items []store.ContentItem, err error) {
	if err != nil {
		h.logger.Warn("list content", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]itemResponse, 0, len(items))
	for _, item := range items {
		out = append(out, toResponse(item))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": out})
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if err := httpx.DecodeAndValidate(r, h.validator, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	access, _ := rbac.AccessFromContext(r.Context())
	id := chi.URLParam(r, "id")
	item, err := h.service.Update(r.Context(), access.UserID, id, store.ContentUpdate{
		Title:     req.Title,
		Summary:   req.Summary,
		URL:       req.URL,
		Published: req.Published,
		SortOrder: req.SortOrder,
	})
	if err != nil {
		h.logger.Warn("update content", slog.String("content_id", id), slog.String("user_id", access.UserID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(item))
}

func toResponse(item store.ContentItem) itemResponse {
	return itemResponse{
		ID:        item.ID,
		Kind:      item.Kind,
		Title:     item.Title,
		Summary:   item.Summary,
		URL:       item.URL,
		Published: item.Published,
		SortOrder: item.SortOrder,
		UpdatedBy: item.UpdatedBy,
		UpdatedAt: item.UpdatedAt,
	}
}
