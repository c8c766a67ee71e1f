package rbac

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/hopebridge/donor-portal/internal/observability"
	"github.com/hopebridge/donor-portal/internal/platform/httpx"
	"github.com/hopebridge/donor-portal/internal/shared"
)

// Middleware wires RBAC authorization helpers for HTTP handlers.
type Middleware struct {
	Guard    *Guard
	Identity shared.IdentitySource
	Logger   *slog.Logger
	Metrics  *observability.Metrics
}

// Require ensures the current user holds perm. The resolved access context is
// attached to the request for downstream handlers.
func (m Middleware) Require(perm Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := m.currentUserID(r)
			if !ok {
				m.Metrics.RecordAuthz(string(perm), "unauthenticated")
				httpx.RespondError(w, httpx.ErrUnauthorized)
				return
			}
			access, granted, err := m.Guard.Check(r.Context(), userID, perm)
			if err != nil {
				m.deny(w, r, perm, userID, err)
				return
			}
			if !granted {
				m.Metrics.RecordAuthz(string(perm), "forbidden")
				m.logger().Warn("rbac forbidden", slog.String("user_id", userID), slog.String("permission", string(perm)), slog.String("path", r.URL.Path))
				httpx.RespondError(w, httpx.ErrForbidden)
				return
			}
			m.Metrics.RecordAuthz(string(perm), "allowed")
			next.ServeHTTP(w, r.WithContext(ContextWithAccess(r.Context(), access)))
		})
	}
}

// Authenticated only requires a resolvable identity and attaches its access
// context.
func (m Middleware) Authenticated() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := m.currentUserID(r)
			if !ok {
				httpx.RespondError(w, httpx.ErrUnauthorized)
				return
			}
			access, err := m.Guard.Resolve(r.Context(), userID)
			if err != nil {
				m.deny(w, r, "", userID, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithAccess(r.Context(), access)))
		})
	}
}

func (m Middleware) deny(w http.ResponseWriter, r *http.Request, perm Permission, userID string, err error) {
	switch {
	case errors.Is(err, ErrUnauthenticated):
		m.Metrics.RecordAuthz(string(perm), "unauthenticated")
		httpx.RespondError(w, httpx.ErrUnauthorized)
	case errors.Is(err, ErrUnknownPermission):
		m.logger().Error("rbac unknown permission", slog.String("permission", string(perm)), slog.String("path", r.URL.Path))
		httpx.RespondError(w, err)
	default:
		// Fail closed: the request is denied, but operators see the
		// infrastructure failure rather than a plain forbidden.
		m.Metrics.RecordAuthz(string(perm), "error")
		m.logger().Error("rbac backend unavailable", slog.String("user_id", userID), slog.String("path", r.URL.Path), slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}

func (m Middleware) currentUserID(r *http.Request) (string, bool) {
	if m.Identity == nil {
		return "", false
	}
	return m.Identity.CurrentUserID(r)
}

func (m Middleware) logger() *slog.Logger {
	if m.Logger != nil {
		return m.Logger
	}
	return slog.Default()
}
