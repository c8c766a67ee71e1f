package ratelimit

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hopebridge/donor-portal/internal/observability"
)

func TestMiddlewareRejectsOverQuota(t *testing.T) {
	guard := Guard{Limiter: New(), Metrics: observability.NewMetrics()}
	handler := guard.Middleware(Rule{Name: "recurring_cancel", Limit: 2, Window: time.Minute})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}),
	)

	send := func(addr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/giving/recurring/r1/cancel", nil)
		req.RemoteAddr = addr
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr
	}

	first := send("192.0.2.1:1234")
	assert.Equal(t, http.StatusNoContent, first.Code)
	assert.Equal(t, "2", first.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", first.Header().Get("X-RateLimit-Remaining"))

	assert.Equal(t, http.StatusNoContent, send("192.0.2.1:1234").Code)

	denied := send("192.0.2.1:5555")
	require.Equal(t, http.StatusTooManyRequests, denied.Code)
	assert.NotEmpty(t, denied.Header().Get("Retry-After"))

	var body struct {
		Status            int `json:"status"`
		RetryAfterSeconds int `json:"retry_after_seconds"`
	}
	require.NoError(t, json.Unmarshal(denied.Body.Bytes(), &body))
	assert.Equal(t, http.StatusTooManyRequests, body.Status)
	assert.GreaterOrEqual(t, body.RetryAfterSeconds, 1)

	assert.Equal(t, http.StatusNoContent, send("198.51.100.7:80").Code, "other clients keep their own window")
}

func TestMiddlewareKeysByRuleName(t *testing.T) {
	guard := Guard{Limiter: New()}
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	a := guard.Middleware(Rule{Name: "a", Limit: 1, Window: time.Minute})(ok)
	b := guard.Middleware(Rule{Name: "b", Limit: 1, Window: time.Minute})(ok)

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.RemoteAddr = "192.0.2.1:1"

	rr := httptest.NewRecorder()
	a.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	b.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	a.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
}

func TestSensitiveUsesConfiguredQuota(t *testing.T) {
	guard := Guard{Limiter: New(), SensitiveLimit: 1, SensitiveWindow: time.Minute}
	handler := guard.Sensitive("role_assign")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i, want := range []int{http.StatusOK, http.StatusTooManyRequests} {
		req := httptest.NewRequest(http.MethodPut, "/admin/users/u1/roles", nil)
		req.RemoteAddr = "198.51.100.7:4000"
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		assert.Equalf(t, want, rr.Code, "request %d", i)
	}
}

func TestSensitiveDefaults(t *testing.T) {
	guard := Guard{Limiter: New()}
	handler := guard.Sensitive("content_update")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	req := httptest.NewRequest(http.MethodPatch, "/admin/content/c1", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	assert.Equal(t, "10", rr.Header().Get("X-RateLimit-Limit"))
}

func TestRetryAfterFromReset(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 20, 0, time.UTC)
	h := http.Header{}
	h.Set("X-RateLimit-Reset", strconv.FormatInt(now.Add(40*time.Second).Unix(), 10))
	assert.Equal(t, 40, RetryAfterFromReset(h, now, time.Minute))

	h.Set("X-RateLimit-Reset", strconv.FormatInt(now.Add(-time.Second).Unix(), 10))
	assert.Equal(t, 1, RetryAfterFromReset(h, now, time.Minute), "never below one second")

	assert.Equal(t, 60, RetryAfterFromReset(http.Header{}, now, time.Minute))
}

func TestMiddlewareWithoutLimiterPassesThrough(t *testing.T) {
	handler := Guard{}.Sensitive("content_update")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPatch, "/admin/content/c1", nil))
	assert.Equal(t, http.StatusAccepted, rr.Code)
	assert.Empty(t, rr.Header().Get("X-RateLimit-Limit"))
}
