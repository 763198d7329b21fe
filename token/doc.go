// Package token provides the session-token record model, its compact binary
// encoding, and the [Store] backends that persist records by token string.
//
// # Expiry
//
// A record is valid strictly before its ExpiresAt. Backends attach a TTL so
// that expired records are eventually evicted, but eviction is best effort:
// readers must call [Record.Expired] instead of relying on absence.
//
// # Backends
//
//   - [RedisStore] : shared, multi-instance deployments (go-redis)
//   - [MemoryStore]: single process, sharded maps with a background sweeper
//   - [BadgerStore]: embedded persistent store with native entry TTLs
//
// # Architecture boundaries
//
// This package owns persistence only. It does NOT classify tokens as
// missing/invalid/expired, rate limit, or talk HTTP. Those belong to the
// engine and middleware.
//
// # What this package must NOT do
//
//   - Import sessiongate, middleware, or client (no upward imports).
//   - Update a record in place. Records are create-only.
//   - Filter expired records on read. The validator decides expiry.
package token
