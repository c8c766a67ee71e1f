// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"
	"strconv"
)

// Sentinel errors for domain layer. Domain packages wrap these so the
// transport mapping stays in one place.
var (
	ErrNotFound     = errors.New("resource not found")
	ErrDuplicate    = errors.New("duplicate entry")
	ErrValidation   = errors.New("validation failed")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
)

// RespondError maps domain errors to HTTP responses using RFC7807.
// Authorization failures use fixed details so nothing about the missing
// permission leaks; unknown errors carry no detail.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrDuplicate):
		Problem(w, http.StatusConflict, "Duplicate", err.Error())
	case errors.Is(err, ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrForbidden):
		Problem(w, http.StatusForbidden, "Forbidden", "forbidden")
	case errors.Is(err, ErrUnauthorized):
		Problem(w, http.StatusUnauthorized, "Unauthorized", "unauthorized")
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

// RateLimited writes a 429 problem carrying the retry hint.
func RateLimited(w http.ResponseWriter, retryAfterSeconds int) {
	w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds))
	JSON(w, http.StatusTooManyRequests, RateLimitProblem{
		ProblemDetail: ProblemDetail{
			Title:  "Too Many Requests",
			Status: http.StatusTooManyRequests,
			Detail: "rate limited, retry after " + strconv.Itoa(retryAfterSeconds) + " seconds",
		},
		RetryAfterSeconds: retryAfterSeconds,
	})
}
