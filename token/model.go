package token

import "time"

// Record is one issued session token as persisted by a [Store].
//
// Records are immutable once written; ExpiresAt is fixed at issuance.
type Record struct {
	Token     string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether the record is no longer valid at now.
// A record expires exactly at ExpiresAt.
func (r *Record) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// Remaining returns the validity left at now, or zero once expired.
func (r *Record) Remaining(now time.Time) time.Duration {
	d := r.ExpiresAt.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}
