// Package sessiongate issues and validates short-lived opaque session tokens
// for anonymous API clients, with per-IP fixed-window rate limiting.
//
// A client obtains a token from the issuance endpoint and sends it in the
// x-session-token header. The token is a random 256-bit value; its record
// (issue and expiry instants) lives in a [token.Store]. Expiry is decided
// from the record's ExpiresAt at validation time, never from whether the
// backend still holds the key, and an expired record is deleted on read.
//
// # Architecture boundaries
//
// sessiongate is the public surface. It exposes [Engine], [Builder], [Config]
// and value types (IssuedToken, MetricsSnapshot, RateDecision). Flow
// orchestration, rate limiting and audit dispatch live under internal/.
// HTTP adapters live in middleware and httpapi; the retrying client lives in
// client.
//
// # Failure posture
//
// Every backend failure on the validation path rejects the request. Issuance
// never hands out a token that was not persisted. A failing rate-limiter
// backend rejects rather than admits.
//
// Engine methods are safe to call from multiple goroutines after
// [Builder.Build].
package sessiongate
