// Package middleware exposes net/http adapters around sessiongate.Engine:
// the session gate, the general per-IP rate limiter and the ambient request
// plumbing (request IDs, client IP resolution, access logs, panic recovery).
//
// # Guards
//
//   - [Guard] reads the session token header (falling back to the signed
//     cookie when enabled), calls Engine.Validate and injects the record.
//   - [RateLimit] charges the general budget and writes X-RateLimit-* headers.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does NOT
// decide validity itself; every pass/reject comes from the Engine.
package middleware
