package token

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned by Get when no record exists for the token.
	ErrNotFound = errors.New("token not found")
	// ErrConflict is returned by Put when a record already exists for the token.
	ErrConflict = errors.New("token already exists")
	// ErrUnavailable wraps backend failures (network, disk, closed store).
	ErrUnavailable = errors.New("token store unavailable")
	// ErrCorrupt is returned when a stored value cannot be decoded.
	ErrCorrupt = errors.New("token record corrupt")
)

// DefaultEvictionGrace keeps a logically expired record physically present a
// little longer so the validator can observe and purge it.
const DefaultEvictionGrace = time.Minute

// Store persists session-token records keyed by token string.
//
// Implementations must be safe for concurrent use and must not serialize
// operations on unrelated tokens behind one global lock.
type Store interface {
	// Put creates the record. It fails with ErrConflict if the token exists.
	Put(ctx context.Context, rec *Record) error
	// Get returns the record as physically stored, expired or not.
	// Absent tokens yield ErrNotFound.
	Get(ctx context.Context, tok string) (*Record, error)
	// Delete removes the record. Deleting an absent token is not an error.
	Delete(ctx context.Context, tok string) error
}

// evictionTTL is the physical lifetime a backend attaches to rec.
func evictionTTL(rec *Record, grace time.Duration) time.Duration {
	ttl := rec.ExpiresAt.Sub(rec.CreatedAt) + grace
	if ttl < time.Millisecond {
		ttl = time.Millisecond
	}
	return ttl
}
