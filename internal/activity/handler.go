// Package activity serves the signed-in user's own activity feed.
package activity

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hopebridge/donor-portal/internal/platform/httpx"
	"github.com/hopebridge/donor-portal/internal/rbac"
	"github.com/hopebridge/donor-portal/internal/store"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

// Lister reads activity events newest first.
type Lister interface {
	ListActivity(ctx context.Context, userID string, limit int) ([]store.ActivityEvent, error)
}

// Handler exposes GET /activity.
type Handler struct {
	logger *slog.Logger
	events Lister
	rbac   rbac.Middleware
}

// NewHandler builds an activity handler.
func NewHandler(logger *slog.Logger, events Lister, rbacMW rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, events: events, rbac: rbacMW}
}

// MountRoutes registers the feed route.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.rbac.Authenticated()).Get("/", h.feed)
}

type eventResponse struct {
	ID         string    `json:"id"`
	Kind       string    `json:"kind"`
	Message    string    `json:"message"`
	OccurredAt time.Time `json:"occurred_at"`
}

func (h *Handler) feed(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	access, _ := rbac.AccessFromContext(r.Context())
	events, err := h.events.ListActivity(r.Context(), access.UserID, limit)
	if err != nil {
		h.logger.Error("list activity", slog.String("user_id", access.UserID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]eventResponse, 0, len(events))
	for _, ev := range events {
		out = append(out, eventResponse{ID: ev.ID, Kind: ev.Kind, Message: ev.Message, OccurredAt: ev.OccurredAt})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"events": out})
}

func parseLimit(raw string) (int, error) {
	if raw == "" {
		return defaultLimit, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return 0, fmt.Errorf("activity: limit must be a positive integer: %w", httpx.ErrValidation)
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return limit, nil
}
