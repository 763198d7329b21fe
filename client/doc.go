// Package client is the consumer side of sessiongate: it obtains session
// tokens from the issuance endpoint, caches one per [Client], and retries a
// request once with a fresh token when the server answers 401.
//
// Concurrent callers that find the cache empty share a single issuance
// call. Failed issuances are never cached. Every [TokenCache] is
// independent; nothing is shared at package level.
package client
