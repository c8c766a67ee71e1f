package shared

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) (*SessionManager, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewSessionManager(client, "", "test-secret", time.Hour, false), mr
}

func sessionCookie(t *testing.T, rr *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()
	for _, c := range rr.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestAnonymousSessionIsNotStored(t *testing.T) {
	sm, mr := newTestManager(t)
	handler := sm.Middleware(slog.New(slog.NewTextHandler(io.Discard, nil)))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := SessionFromContext(r.Context())
		require.NotNil(t, sess)
		assert.Empty(t, sess.User())
		w.WriteHeader(http.StatusNoContent)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Nil(t, sessionCookie(t, rr, DefaultSessionCookie))
	assert.Empty(t, mr.Keys())
}

func TestSessionRoundTripThroughMiddleware(t *testing.T) {
	sm, mr := newTestManager(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	login := sm.Middleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := SessionFromContext(r.Context())
		sm.Renew(sess)
		sess.SetUser("usr_donor_grace")
		_, _ = w.Write([]byte("ok"))
	}))
	rr := httptest.NewRecorder()
	login.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/auth/login", nil))
	cookie := sessionCookie(t, rr, DefaultSessionCookie)
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)
	assert.Len(t, mr.Keys(), 1)
	assert.NotContains(t, mr.Keys()[0], cookie.Value)

	var seen string
	whoami := sm.Middleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := SessionIdentity{}.CurrentUserID(r)
		if ok {
			seen = id
		}
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest(http.MethodGet, "/me/access", nil)
	req.AddCookie(cookie)
	whoami.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "usr_donor_grace", seen)
}

func TestRenewDropsPreviousID(t *testing.T) {
	sm, mr := newTestManager(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	setUser := func(id string, cookie *http.Cookie) *http.Cookie {
		h := sm.Middleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := SessionFromContext(r.Context())
			sm.Renew(sess)
			sess.SetUser(id)
			w.WriteHeader(http.StatusOK)
		}))
		req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
		if cookie != nil {
			req.AddCookie(cookie)
		}
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return sessionCookie(t, rr, DefaultSessionCookie)
	}

	first := setUser("usr_a", nil)
	second := setUser("usr_b", first)
	require.NotNil(t, second)
	assert.NotEqual(t, first.Value, second.Value)
	assert.Len(t, mr.Keys(), 1)
}

func TestDestroyClearsCookieAndKey(t *testing.T) {
	sm, mr := newTestManager(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	login := sm.Middleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		SessionFromContext(r.Context()).SetUser("usr_a")
	}))
	rr := httptest.NewRecorder()
	login.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/auth/login", nil))
	cookie := sessionCookie(t, rr, DefaultSessionCookie)
	require.NotNil(t, cookie)

	logout := sm.Middleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sm.Destroy(SessionFromContext(r.Context()))
		w.WriteHeader(http.StatusNoContent)
	}))
	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.AddCookie(cookie)
	rr = httptest.NewRecorder()
	logout.ServeHTTP(rr, req)

	cleared := sessionCookie(t, rr, DefaultSessionCookie)
	require.NotNil(t, cleared)
	assert.Equal(t, -1, cleared.MaxAge)
	assert.Empty(t, mr.Keys())
}

func TestLoadUnknownCookieStartsFresh(t *testing.T) {
	sm, _ := newTestManager(t)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: DefaultSessionCookie, Value: "stale"})
	sess, err := sm.Load(req.Context(), req)
	require.NoError(t, err)
	assert.NotEqual(t, "stale", sess.ID)
	assert.Empty(t, sess.User())
}

func TestActiveIdentity(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	id, ok := ActiveIdentity{Current: func() string { return " usr_a " }}.CurrentUserID(req)
	assert.True(t, ok)
	assert.Equal(t, "usr_a", id)

	_, ok = ActiveIdentity{}.CurrentUserID(req)
	assert.False(t, ok)
}
