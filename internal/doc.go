// Package internal contains helper utilities that are intentionally private to
// sessiongate, chiefly secure token generation and log-safe fingerprints.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher + Sink implementations)
//   - flows: pure-function orchestrators for issue, validate and revoke
//   - rate: fixed-window counters (Redis and in-memory backends)
//
// # What this package must NOT do
//
//   - Export types that appear in the public sessiongate API.
//   - Be imported by any package outside the sessiongate module.
package internal
