package ratelimit

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/httprate"

	"github.com/hopebridge/donor-portal/internal/observability"
	"github.com/hopebridge/donor-portal/internal/platform/httpx"
)

// Rule names a protected operation and its quota.
type Rule struct {
	Name   string
	Limit  int
	Window time.Duration
}

// Default quota for sensitive mutations.
const (
	DefaultSensitiveLimit  = 10
	DefaultSensitiveWindow = time.Minute
)

// Guard applies fixed-window rules to HTTP routes.
type Guard struct {
	Limiter *Limiter
	Logger  *slog.Logger
	Metrics *observability.Metrics

	// SensitiveLimit and SensitiveWindow form the quota used by Sensitive.
	SensitiveLimit  int
	SensitiveWindow time.Duration
}

// Sensitive guards a mutation named name with the configured sensitive quota.
func (g Guard) Sensitive(name string) func(http.Handler) http.Handler {
	limit, window := g.SensitiveLimit, g.SensitiveWindow
	if limit <= 0 {
		limit = DefaultSensitiveLimit
	}
	if window <= 0 {
		window = DefaultSensitiveWindow
	}
	return g.Middleware(Rule{Name: name, Limit: limit, Window: window})
}

// Middleware rejects requests exceeding rule, keyed by client address and
// rule name.
func (g Guard) Middleware(rule Rule) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if g.Limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			client, err := httprate.KeyByIP(r)
			if err != nil || client == "" {
				client = r.RemoteAddr
			}
			res := g.Limiter.Check(client+":"+rule.Name, rule.Limit, rule.Window)
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
			if !res.Allowed {
				g.Metrics.RecordRateLimited(rule.Name)
				if g.Logger != nil {
					g.Logger.Warn("rate limited", slog.String("rule", rule.Name), slog.String("client", client), slog.Int("retry_after", res.RetryAfterSeconds))
				}
				httpx.RateLimited(w, res.RetryAfterSeconds)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RetryAfterFromReset returns the seconds until the X-RateLimit-Reset unix
// timestamp that httprate writes before calling its limit handler. Without the
// header the full window is reported.
func RetryAfterFromReset(h http.Header, now time.Time, window time.Duration) int {
	reset, err := strconv.ParseInt(h.Get("X-RateLimit-Reset"), 10, 64)
	if err != nil {
		return retryAfter(window)
	}
	return retryAfter(time.Unix(reset, 0).Sub(now))
}
