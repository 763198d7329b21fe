package sessiongate

import (
	"errors"
	"fmt"

	"github.com/MrEthical07/sessiongate/internal/rate"
)

var (
	// ErrTokenMissing is returned when a request carries no session token.
	ErrTokenMissing = errors.New("missing session token")
	// ErrTokenInvalid is returned for tokens that were never issued, were
	// revoked, or are malformed.
	ErrTokenInvalid = errors.New("invalid session token")
	// ErrTokenExpired is returned for tokens at or past their expiry.
	ErrTokenExpired = errors.New("session token expired")
	// ErrStoreUnavailable is returned when the token store cannot answer.
	// Validation fails closed on it.
	ErrStoreUnavailable = errors.New("session store unavailable")
	// ErrRateLimited is the parent of every rate-limit rejection.
	ErrRateLimited = errors.New("rate limited")
	// ErrIssueRateLimited is returned when the issuance budget for a client is spent.
	ErrIssueRateLimited = fmt.Errorf("token issuance %w", ErrRateLimited)
	// ErrRateLimiterUnavailable is returned when a limiter backend fails.
	ErrRateLimiterUnavailable = errors.New("rate limiter unavailable")
	// ErrIssuanceFailed is returned when a token could not be minted and
	// persisted. No token is handed out in that case.
	ErrIssuanceFailed = errors.New("session token issuance failed")
	// ErrRevokeFailed is returned when revocation could not reach the store.
	ErrRevokeFailed = errors.New("session token revocation failed")
	// ErrCookieInvalid is returned when a session cookie fails verification.
	ErrCookieInvalid = errors.New("invalid session cookie")
	// ErrCookieDisabled is returned by cookie helpers when the cookie transport is off.
	ErrCookieDisabled = errors.New("session cookie transport disabled")
	// ErrEngineNotReady is returned when a nil or unbuilt Engine is used.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// RateLimitScope names the limiter that produced a [RateLimitError].
type RateLimitScope string

const (
	// RateLimitGeneral is the per-IP limit on protected traffic.
	RateLimitGeneral RateLimitScope = "general"
	// RateLimitIssuance is the stricter per-IP limit on token issuance.
	RateLimitIssuance RateLimitScope = "issuance"
)

// RateDecision is the limiter verdict surfaced to HTTP adapters for
// X-RateLimit-* and Retry-After headers.
type RateDecision = rate.Decision

// RateLimitError carries the limiter decision that rejected a request.
// errors.Is matches ErrRateLimited for both scopes and ErrIssueRateLimited
// for the issuance scope.
type RateLimitError struct {
	Scope    RateLimitScope
	Decision RateDecision
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s rate limit exceeded", e.Scope)
}

func (e *RateLimitError) Unwrap() error {
	if e.Scope == RateLimitIssuance {
		return ErrIssueRateLimited
	}
	return ErrRateLimited
}
