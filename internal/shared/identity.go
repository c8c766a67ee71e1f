package shared

import (
	"net/http"
	"strings"
)

// IdentitySource yields the authenticated user id for a request.
type IdentitySource interface {
	CurrentUserID(r *http.Request) (string, bool)
}

// SessionIdentity reads the user id stored in the request session.
type SessionIdentity struct{}

// CurrentUserID implements IdentitySource.
func (SessionIdentity) CurrentUserID(r *http.Request) (string, bool) {
	sess := SessionFromContext(r.Context())
	if sess == nil {
		return "", false
	}
	id := strings.TrimSpace(sess.User())
	return id, id != ""
}

// ActiveIdentity substitutes a single process-wide identity for the session,
// used when the portal runs against the in-memory parity store.
type ActiveIdentity struct {
	Current func() string
}

// CurrentUserID implements IdentitySource.
func (a ActiveIdentity) CurrentUserID(*http.Request) (string, bool) {
	if a.Current == nil {
		return "", false
	}
	id := strings.TrimSpace(a.Current())
	return id, id != ""
}
