package giving

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hopebridge/donor-portal/internal/platform/httpx"
	"github.com/hopebridge/donor-portal/internal/ratelimit"
	"github.com/hopebridge/donor-portal/internal/rbac"
	"github.com/hopebridge/donor-portal/internal/store"
)

// Handler exposes the giving endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
	limits  ratelimit.Guard
}

// NewHandler builds a giving handler.
func NewHandler(logger *slog.Logger, service *Service, rbacMW rbac.Middleware, limits ratelimit.Guard) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, rbac: rbacMW, limits: limits}
}

// MountRoutes registers giving routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Authenticated())
		r.Get("/gifts", h.listGifts)
		r.Get("/recurring", h.listRecurring)
		r.With(h.limits.Sensitive("recurring_cancel")).Post("/recurring/{id}/cancel", h.cancelRecurring)
	})
}

type giftResponse struct {
	ID          string    `json:"id"`
	AmountCents int64     `json:"amount_cents"`
	Amount      string    `json:"amount"`
	Currency    string    `json:"currency"`
	Fund        string    `json:"fund"`
	Method      string    `json:"method"`
	GivenAt     time.Time `json:"given_at"`
}

type recurringResponse struct {
	ID           string    `json:"id"`
	AmountCents  int64     `json:"amount_cents"`
	Amount       string    `json:"amount"`
	Currency     string    `json:"currency"`
	Fund         string    `json:"fund"`
	Interval     string    `json:"interval"`
	Status       string    `json:"status"`
	NextChargeAt time.Time `json:"next_charge_at"`
}

func (h *Handler) listGifts(w http.ResponseWriter, r *http.Request) {
	access, _ := rbac.AccessFromContext(r.Context())
	gifts, err := h.service.Gifts(r.Context(), access.UserID)
	if err != nil {
		h.logger.Error("list gifts", slog.String("user_id", access.UserID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]giftResponse, 0, len(gifts))
	for _, g := range gifts {
		out = append(out, giftResponse{
			ID:          g.ID,
			AmountCents: g.AmountCents,
			Amount:      FormatAmount(g.AmountCents, g.Currency),
			Currency:    g.Currency,
			Fund:        g.Fund,
			Method:      g.Method,
			GivenAt:     g.GivenAt,
		})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"gifts": out})
}

func (h *Handler) listRecurring(w http.ResponseWriter, r *http.Request) {
	access, _ := rbac.AccessFromContext(r.Context())
	plans, err := h.service.Recurring(r.Context(), access.UserID)
	if err != nil {
		h.logger.Error("list recurring gifts", slog.String("user_id", access.UserID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]recurringResponse, 0, len(plans))
	for _, p := range plans {
		out = append(out, toRecurringResponse(p))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"recurring_gifts": out})
}

func (h *Handler) cancelRecurring(w http.ResponseWriter, r *http.Request) {
	access, _ := rbac.AccessFromContext(r.Context())
	id := chi.URLParam(r, "id")
	plan, err := h.service.CancelRecurring(r.Context(), access.UserID, id)
	if err != nil {
		h.logger.Warn("cancel recurring gift", slog.String("user_id", access.UserID), slog.String("recurring_gift_id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toRecurringResponse(plan))
}

func toRecurringResponse(p store.RecurringGift) recurringResponse {
	return recurringResponse{
		ID:           p.ID,
		AmountCents:  p.AmountCents,
		Amount:       FormatAmount(p.AmountCents, p.Currency),
		Currency:     p.Currency,
		Fund:         p.Fund,
		Interval:     p.Interval,
		Status:       p.Status,
		NextChargeAt: p.NextChargeAt,
	}
}
