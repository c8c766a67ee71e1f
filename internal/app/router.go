package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/hopebridge/donor-portal/internal/activity"
	audithttp "github.com/hopebridge/donor-portal/internal/audit/http"
	"github.com/hopebridge/donor-portal/internal/auth"
	"github.com/hopebridge/donor-portal/internal/content"
	"github.com/hopebridge/donor-portal/internal/giving"
	"github.com/hopebridge/donor-portal/internal/observability"
	"github.com/hopebridge/donor-portal/internal/platform/httpx"
	"github.com/hopebridge/donor-portal/internal/rbac"
	"github.com/hopebridge/donor-portal/internal/shared"
	"github.com/hopebridge/donor-portal/internal/users"
	"github.com/hopebridge/donor-portal/jobs"
)

// RouterParams groups dependencies for building the HTTP router. Nil
// handlers are not mounted.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	RBACMiddleware rbac.Middleware
	Metrics        *observability.Metrics

	AuthHandler        *auth.Handler
	DevHandler         *auth.DevHandler
	GivingHandler      *giving.Handler
	ContentHandler     *content.Handler
	UsersHandler       *users.Handler
	ActivityHandler    *activity.Handler
	AuditHandler       *audithttp.Handler
	PermissionsHandler *rbac.PermissionsHandler
	JobHandler         *jobs.Handler

	// RequestLogging enables chi's request logger.
	RequestLogging bool
}

type healthResponse struct {
	Status string `json:"status"`
	Mode   string `json:"mode"`
}

// NewRouter constructs the chi.Router with portal defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}
	if params.RequestLogging {
		r.Use(chimw.Logger)
	}

	mode := "live"
	if params.Config.UseParityStore() {
		mode = "parity"
	}
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, healthResponse{Status: "ok", Mode: mode})
	})

	if params.AuthHandler != nil {
		r.Route("/auth", params.AuthHandler.MountRoutes)
	}
	if params.DevHandler != nil {
		r.Route("/dev", params.DevHandler.MountRoutes)
	}
	if params.GivingHandler != nil {
		r.Route("/giving", params.GivingHandler.MountRoutes)
	}
	if params.ContentHandler != nil {
		r.Route("/content", params.ContentHandler.MountRoutes)
	}
	if params.ActivityHandler != nil {
		r.Route("/activity", params.ActivityHandler.MountRoutes)
	}

	r.Route("/me", func(r chi.Router) {
		if params.PermissionsHandler != nil {
			params.PermissionsHandler.MountRoutes(r)
		}
		if params.UsersHandler != nil {
			params.UsersHandler.MountRoutes(r)
		}
	})

	r.Route("/admin", func(r chi.Router) {
		if params.PermissionsHandler != nil {
			params.PermissionsHandler.MountAdminRoutes(r)
		}
		if params.AuditHandler != nil {
			params.AuditHandler.MountRoutes(r)
		}
		if params.UsersHandler != nil {
			r.Route("/users", params.UsersHandler.MountAdminRoutes)
		}
		if params.ContentHandler != nil {
			r.Route("/content", params.ContentHandler.MountAdminRoutes)
		}
		if params.JobHandler != nil {
			r.Route("/jobs", func(r chi.Router) {
				r.Use(params.RBACMiddleware.Require(rbac.PermAdminAccess))
				params.JobHandler.MountRoutes(r)
			})
		}
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
