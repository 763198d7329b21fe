package flows

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/sessiongate/token"
)

// ValidateFailureKind classifies validation failures for root-level mapping.
type ValidateFailureKind int

const (
	ValidateFailureNone ValidateFailureKind = iota
	ValidateFailureMissing
	ValidateFailureInvalid
	ValidateFailureExpired
	ValidateFailureUnavailable
)

// ValidateResult returns either the live record or a classified failure.
// PurgeErr is set when an expired or corrupt record could not be deleted;
// the failure classification stands regardless.
type ValidateResult struct {
	Failure  ValidateFailureKind
	Err      error
	Record   *token.Record
	PurgeErr error
	Purged   bool
}

type ValidateStore interface {
	Get(ctx context.Context, tok string) (*token.Record, error)
	Delete(ctx context.Context, tok string) error
}

// ValidateDeps captures validation dependencies.
type ValidateDeps struct {
	Now        func() time.Time
	Store      ValidateStore
	WellFormed func(string) bool
}

// RunValidate classifies tok as missing, invalid, expired or valid. Expiry is
// decided from ExpiresAt, never from physical presence, and an expired record
// is deleted before the rejection is returned.
func RunValidate(ctx context.Context, tok string, deps ValidateDeps) ValidateResult {
	if tok == "" {
		return ValidateResult{Failure: ValidateFailureMissing}
	}
	if deps.WellFormed != nil && !deps.WellFormed(tok) {
		return ValidateResult{Failure: ValidateFailureInvalid}
	}

	rec, err := deps.Store.Get(ctx, tok)
	if err != nil {
		switch {
		case errors.Is(err, token.ErrNotFound):
			return ValidateResult{Failure: ValidateFailureInvalid, Err: err}
		case errors.Is(err, token.ErrCorrupt):
			purgeErr := deps.Store.Delete(ctx, tok)
			return ValidateResult{Failure: ValidateFailureInvalid, Err: err, PurgeErr: purgeErr, Purged: purgeErr == nil}
		default:
			return ValidateResult{Failure: ValidateFailureUnavailable, Err: err}
		}
	}

	if rec.Expired(deps.Now()) {
		purgeErr := deps.Store.Delete(ctx, tok)
		return ValidateResult{Failure: ValidateFailureExpired, PurgeErr: purgeErr, Purged: purgeErr == nil}
	}

	return ValidateResult{Record: rec}
}
