package rbac

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hopebridge/donor-portal/internal/platform/httpx"
)

// PermissionsHandler exposes the permission catalog and the caller's
// resolved access.
type PermissionsHandler struct {
	logger *slog.Logger
	rbac   Middleware
}

// NewPermissionsHandler builds PermissionsHandler instance.
func NewPermissionsHandler(logger *slog.Logger, rbac Middleware) *PermissionsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PermissionsHandler{logger: logger, rbac: rbac}
}

// MountRoutes registers GET /access on the caller's /me router.
func (h *PermissionsHandler) MountRoutes(r chi.Router) {
	r.With(h.rbac.Authenticated()).Get("/access", h.myAccess)
}

// MountAdminRoutes registers GET /permissions on the /admin router.
func (h *PermissionsHandler) MountAdminRoutes(r chi.Router) {
	r.With(h.rbac.Require(PermAdminAccess)).Get("/permissions", h.listPermissions)
}

type roleGrant struct {
	Role        Role         `json:"role"`
	Permissions []Permission `json:"permissions"`
}

type catalogResponse struct {
	Permissions []Permission `json:"permissions"`
	Roles       []roleGrant  `json:"roles"`
}

func (h *PermissionsHandler) listPermissions(w http.ResponseWriter, r *http.Request) {
	roles := AllRoles()
	grants := make([]roleGrant, 0, len(roles))
	for _, role := range roles {
		grants = append(grants, roleGrant{Role: role, Permissions: PermissionsForRole(string(role))})
	}
	httpx.JSON(w, http.StatusOK, catalogResponse{Permissions: AllPermissions(), Roles: grants})
}

func (h *PermissionsHandler) myAccess(w http.ResponseWriter, r *http.Request) {
	access, ok := AccessFromContext(r.Context())
	if !ok {
		h.logger.Error("access context missing", slog.String("path", r.URL.Path))
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	if access.Roles == nil {
		access.Roles = []Role{}
	}
	if access.Permissions == nil {
		access.Permissions = []Permission{}
	}
	httpx.JSON(w, http.StatusOK, access)
}
