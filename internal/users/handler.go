package users

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/hopebridge/donor-portal/internal/platform/httpx"
	"github.com/hopebridge/donor-portal/internal/ratelimit"
	"github.com/hopebridge/donor-portal/internal/rbac"
)

// Handler manages user management endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	rbac      rbac.Middleware
	limits    ratelimit.Guard
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbacMW rbac.Middleware, limits ratelimit.Guard) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, rbac: rbacMW, limits: limits, validator: httpx.NewValidator()}
}

// MountRoutes registers GET /dashboard on the caller's /me router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.rbac.Authenticated()).Get("/dashboard", h.myDashboard)
}

// MountAdminRoutes registers the user administration routes.
func (h *Handler) MountAdminRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.PermManageUsers))
		r.Get("/", h.listUsers)
		r.With(h.limits.Sensitive("role_assign")).Put("/{id}/roles", h.assignRoles)
		r.Put("/{id}/dashboard", h.setDashboard)
	})
}

type rolesRequest struct {
	Roles []string `json:"roles" validate:"required,max=16,dive,required"`
}

type dashboardRequest struct {
	DashboardRole string `json:"dashboard_role" validate:"required,oneof=donor partner church"`
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.service.ListAccounts(r.Context())
	if err != nil {
		h.logger.Error("list users failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"users": accounts})
}

func (h *Handler) assignRoles(w http.ResponseWriter, r *http.Request) {
	var req rolesRequest
	if err := httpx.DecodeAndValidate(r, h.validator, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	access, _ := rbac.AccessFromContext(r.Context())
	userID := chi.URLParam(r, "id")
	roles, err := h.service.AssignRoles(r.Context(), access.UserID, userID, req.Roles)
	if err != nil {
		h.logger.Warn("assign roles", slog.String("actor", access.UserID), slog.String("user_id", userID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("roles assigned", slog.String("actor", access.UserID), slog.String("user_id", userID), slog.Any("roles", roles))
	httpx.JSON(w, http.StatusOK, map[string]any{"user_id": userID, "roles": roles})
}

func (h *Handler) setDashboard(w http.ResponseWriter, r *http.Request) {
	var req dashboardRequest
	if err := httpx.DecodeAndValidate(r, h.validator, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	access, _ := rbac.AccessFromContext(r.Context())
	userID := chi.URLParam(r, "id")
	dash, err := h.service.SetDashboard(r.Context(), access.UserID, userID, req.DashboardRole)
	if err != nil {
		h.logger.Warn("set dashboard", slog.String("actor", access.UserID), slog.String("user_id", userID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, dash)
}

func (h *Handler) myDashboard(w http.ResponseWriter, r *http.Request) {
	access, _ := rbac.AccessFromContext(r.Context())
	dash, err := h.service.Dashboard(r.Context(), access.UserID)
	if err != nil {
		h.logger.Error("load dashboard", slog.String("user_id", access.UserID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, dash)
}
