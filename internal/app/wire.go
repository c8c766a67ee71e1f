package app

import (
	"log/slog"
	"net/http"

	"github.com/hopebridge/donor-portal/internal/activity"
	"github.com/hopebridge/donor-portal/internal/audit"
	audithttp "github.com/hopebridge/donor-portal/internal/audit/http"
	"github.com/hopebridge/donor-portal/internal/auth"
	"github.com/hopebridge/donor-portal/internal/content"
	"github.com/hopebridge/donor-portal/internal/giving"
	"github.com/hopebridge/donor-portal/internal/observability"
	"github.com/hopebridge/donor-portal/internal/ratelimit"
	"github.com/hopebridge/donor-portal/internal/rbac"
	"github.com/hopebridge/donor-portal/internal/shared"
	"github.com/hopebridge/donor-portal/internal/store"
	"github.com/hopebridge/donor-portal/internal/users"
	"github.com/hopebridge/donor-portal/jobs"
)

// Dependencies are the runtime collaborators selected at startup. Exactly
// one of Sessions (live mode) and Switcher (dev-bypass mode) is set.
type Dependencies struct {
	Backend   store.Backend
	Sessions  *shared.SessionManager
	Switcher  auth.IdentitySwitcher
	Queue     jobs.Enqueuer
	Inspector jobs.QueueInspector
	Metrics   *observability.Metrics
	Limiter   *ratelimit.Limiter
}

// NewHandler builds every route handler over deps and returns the router.
// Handlers only see store.Backend, so they behave the same against either
// backend.
func NewHandler(cfg *Config, logger *slog.Logger, deps Dependencies) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	var identity shared.IdentitySource = shared.SessionIdentity{}
	if deps.Switcher != nil {
		identity = shared.ActiveIdentity{Current: deps.Switcher.ActiveIdentity}
	}
	rbacMiddleware := rbac.Middleware{
		Guard:    rbac.NewGuard(rbac.NewResolver(deps.Backend)),
		Identity: identity,
		Logger:   logger,
		Metrics:  deps.Metrics,
	}

	limiter := deps.Limiter
	if limiter == nil {
		limiter = ratelimit.New(ratelimit.WithMaxKeys(cfg.RateLimitMaxKeys))
	}
	limits := ratelimit.Guard{
		Limiter:         limiter,
		Logger:          logger,
		Metrics:         deps.Metrics,
		SensitiveLimit:  cfg.SensitiveRateLimit,
		SensitiveWindow: cfg.SensitiveRateWindow,
	}

	recorder := audit.NewRecorder(deps.Backend, logger, deps.Metrics)

	params := RouterParams{
		Logger:             logger,
		Config:             cfg,
		SessionManager:     deps.Sessions,
		RBACMiddleware:     rbacMiddleware,
		Metrics:            deps.Metrics,
		GivingHandler:      giving.NewHandler(logger, giving.NewService(deps.Backend, deps.Queue, logger), rbacMiddleware, limits),
		ContentHandler:     content.NewHandler(logger, content.NewService(deps.Backend, recorder), rbacMiddleware, limits),
		UsersHandler:       users.NewHandler(logger, users.NewService(deps.Backend, recorder), rbacMiddleware, limits),
		ActivityHandler:    activity.NewHandler(logger, deps.Backend, rbacMiddleware),
		AuditHandler:       audithttp.NewHandler(logger, audit.NewService(deps.Backend), rbacMiddleware),
		PermissionsHandler: rbac.NewPermissionsHandler(logger, rbacMiddleware),
		JobHandler:         jobs.NewHandler(deps.Inspector, logger),
		RequestLogging:     !InTestMode(),
	}
	if deps.Sessions != nil {
		params.AuthHandler = auth.NewHandler(logger, auth.NewService(deps.Backend), deps.Sessions)
	}
	if deps.Switcher != nil {
		params.DevHandler = auth.NewDevHandler(logger, deps.Switcher)
	}
	return NewRouter(params)
}
