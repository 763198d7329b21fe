// Package jwt signs and verifies the session cookie used as an alternative
// transport for the opaque session token.
//
// The cookie is a compact JWT whose "sid" claim is the session token and whose
// "exp" matches the token's server-side expiry. A valid cookie only proves the
// server minted it; the token store lookup remains authoritative.
//
// # What this package must NOT do
//
//   - Decide whether a session token is live (that needs the store).
//   - Import sessiongate (no upward imports).
package jwt
