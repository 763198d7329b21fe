// Package flows contains pure-function orchestrators for every Engine operation.
//
// Each flow function (RunIssue, RunValidate, RunRevoke) accepts a typed
// dependency struct and returns a classified result without side effects
// beyond those dependencies. The Engine maps results to public errors,
// metrics, and audit events.
//
// # Architecture boundaries
//
// Flow functions coordinate calls to the token store, token generator and
// issuance limiter. They do NOT own any of these resources; ownership stays
// with the Engine.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import sessiongate (to avoid import cycles).
//   - Perform I/O directly. All I/O is mediated through dependency interfaces.
package flows
