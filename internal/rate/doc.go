// Package rate provides the fixed-window request counters behind the general
// and issuance rate limits.
//
// # Window semantics
//
// The first hit for a key opens a window of Window.Period; the counter resets
// when that window ends. A request is allowed while the count is at or below
// Window.Limit. Key prefixes:
//   - rl:g:: general traffic per client IP
//   - rl:i:: token issuance per client IP
//
// # Backends
//
//   - [RedisBackend] : INCR + PEXPIRE on first hit + PTTL in one Lua script
//   - [MemoryBackend]: per-process map with an injectable clock
//
// # What this package must NOT do
//
//   - Decide HTTP status codes or headers (middleware does that).
//   - Be imported outside the sessiongate module.
package rate
