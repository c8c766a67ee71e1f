package auth

import (
	"errors"
	"fmt"

	"github.com/hopebridge/donor-portal/internal/platform/httpx"
)

var (
	// ErrInvalidCredentials indicates login failure. The cause is never
	// disclosed to the client.
	ErrInvalidCredentials = fmt.Errorf("auth: invalid credentials: %w", httpx.ErrUnauthorized)
	// ErrNoSession indicates the session middleware did not run.
	ErrNoSession = errors.New("auth: session unavailable")
)

// Principal is the identity returned after a successful login.
type Principal struct {
	UserID  string `json:"user_id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	IsAdmin bool   `json:"is_admin"`
}
