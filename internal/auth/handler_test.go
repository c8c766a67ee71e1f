package auth_test

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/hopebridge/donor-portal/internal/auth"
	"github.com/hopebridge/donor-portal/internal/shared"
	"github.com/hopebridge/donor-portal/internal/store/memory"
	_ "github.com/hopebridge/donor-portal/testing"
)

const password = "correct horse battery"

func seededStore(t *testing.T) *memory.Store {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	seed := memory.DefaultSeed()
	for i := range seed.Users {
		seed.Users[i].User.PasswordHash = string(hash)
		if seed.Users[i].User.ID == memory.SeedPartnerID {
			seed.Users[i].User.IsActive = false
		}
	}
	st, err := memory.New(seed)
	require.NoError(t, err)
	return st
}

type fixture struct {
	router   http.Handler
	sessions *shared.SessionManager
	redis    *miniredis.Miniredis
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	sessions := shared.NewSessionManager(client, "test_session", "secret", time.Hour, false)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	r := chi.NewRouter()
	r.Use(sessions.Middleware(logger))
	r.Route("/auth", auth.NewHandler(logger, auth.NewService(seededStore(t)), sessions).MountRoutes)
	r.Get("/whoami", func(w http.ResponseWriter, r *http.Request) {
		id, _ := shared.SessionIdentity{}.CurrentUserID(r)
		_, _ = w.Write([]byte(id))
	})
	return fixture{router: r, sessions: sessions, redis: mr}
}

func (f fixture) do(method, target, body string, cookie *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)
	return rr
}

func cookieFrom(rr *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rr.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestLoginEstablishesSession(t *testing.T) {
	f := newFixture(t)

	rr := f.do(http.MethodPost, "/auth/login", `{"email":"Grace@Example.org","password":"`+password+`"}`, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"user_id":"usr_donor_grace","email":"grace@example.org","name":"Grace Mensah","is_admin":false}`, rr.Body.String())

	cookie := cookieFrom(rr, "test_session")
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)
	assert.Len(t, f.redis.Keys(), 1)

	who := f.do(http.MethodGet, "/whoami", "", cookie)
	assert.Equal(t, memory.SeedDonorID, who.Body.String())
}

func TestLoginRejections(t *testing.T) {
	cases := []struct {
		name   string
		body   string
		status int
	}{
		{name: "wrong password", body: `{"email":"grace@example.org","password":"wrong password"}`, status: http.StatusUnauthorized},
		{name: "unknown email", body: `{"email":"nobody@example.org","password":"` + password + `"}`, status: http.StatusUnauthorized},
		{name: "inactive account", body: `{"email":"samuel@example.org","password":"` + password + `"}`, status: http.StatusUnauthorized},
		{name: "invalid email", body: `{"email":"grace","password":"` + password + `"}`, status: http.StatusBadRequest},
		{name: "short password", body: `{"email":"grace@example.org","password":"short"}`, status: http.StatusBadRequest},
		{name: "malformed", body: `{"email":`, status: http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			rr := f.do(http.MethodPost, "/auth/login", tc.body, nil)
			assert.Equal(t, tc.status, rr.Code)
			assert.Nil(t, cookieFrom(rr, "test_session"))
			assert.Empty(t, f.redis.Keys())
		})
	}
}

func TestUnauthorizedLoginDoesNotRevealCause(t *testing.T) {
	f := newFixture(t)
	unknown := f.do(http.MethodPost, "/auth/login", `{"email":"nobody@example.org","password":"`+password+`"}`, nil)
	wrong := f.do(http.MethodPost, "/auth/login", `{"email":"grace@example.org","password":"wrong password"}`, nil)
	assert.Equal(t, unknown.Body.String(), wrong.Body.String())
}

func TestLogoutClearsSession(t *testing.T) {
	f := newFixture(t)
	rr := f.do(http.MethodPost, "/auth/login", `{"email":"grace@example.org","password":"`+password+`"}`, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	cookie := cookieFrom(rr, "test_session")
	require.NotNil(t, cookie)

	out := f.do(http.MethodPost, "/auth/logout", "", cookie)
	require.Equal(t, http.StatusNoContent, out.Code)
	cleared := cookieFrom(out, "test_session")
	require.NotNil(t, cleared)
	assert.True(t, cleared.MaxAge < 0)
	assert.Empty(t, f.redis.Keys())

	assert.Empty(t, f.do(http.MethodGet, "/whoami", "", cookie).Body.String())
}

func TestDevIdentitySwitch(t *testing.T) {
	st := seededStore(t)
	r := chi.NewRouter()
	r.Route("/dev", auth.NewDevHandler(nil, st).MountRoutes)

	send := func(method, body string) *httptest.ResponseRecorder {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(method, "/dev/identity", strings.NewReader(body)))
		return rr
	}

	rr := send(http.MethodGet, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"user_id":"usr_donor_grace"}`, rr.Body.String())

	rr = send(http.MethodPost, `{"user_id":"usr_admin_ada"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, memory.SeedAdminID, st.ActiveIdentity())

	assert.Equal(t, http.StatusNotFound, send(http.MethodPost, `{"user_id":"usr_ghost"}`).Code)
	assert.Equal(t, http.StatusBadRequest, send(http.MethodPost, `{}`).Code)
	assert.Equal(t, memory.SeedAdminID, st.ActiveIdentity())

	identity := shared.ActiveIdentity{Current: st.ActiveIdentity}
	id, ok := identity.CurrentUserID(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.True(t, ok)
	assert.Equal(t, memory.SeedAdminID, id)
}
