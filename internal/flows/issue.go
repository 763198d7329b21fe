package flows

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/sessiongate/internal/rate"
	"github.com/MrEthical07/sessiongate/token"
)

// DefaultIssueAttempts bounds regeneration after a token collision.
const DefaultIssueAttempts = 3

// IssueFailureKind classifies issuance failures for root-level mapping.
type IssueFailureKind int

const (
	IssueFailureNone IssueFailureKind = iota
	IssueFailureRateLimited
	IssueFailureLimiter
	IssueFailureGenerate
	IssueFailureStore
)

// IssueResult carries the minted record or a classified failure. Decision is
// the issuance limiter outcome whenever the limiter was consulted.
type IssueResult struct {
	Failure  IssueFailureKind
	Err      error
	Record   *token.Record
	Decision rate.Decision
	Attempts int
}

type IssueStore interface {
	Put(ctx context.Context, rec *token.Record) error
}

// IssueDeps captures issuance dependencies.
type IssueDeps struct {
	Limiter       *rate.Limiter
	GenerateToken func() (string, error)
	Now           func() time.Time
	Lifetime      time.Duration
	Store         IssueStore
	MaxAttempts   int
}

// RunIssue checks the issuance budget for clientIP, then mints and persists a
// new record. Nothing is written when the budget is exhausted, and no record
// is returned unless the store accepted it.
func RunIssue(ctx context.Context, clientIP string, deps IssueDeps) IssueResult {
	var decision rate.Decision
	if deps.Limiter != nil {
		d, err := deps.Limiter.Allow(ctx, clientIP)
		if err != nil {
			return IssueResult{Failure: IssueFailureLimiter, Err: err}
		}
		decision = d
		if !d.Allowed {
			return IssueResult{Failure: IssueFailureRateLimited, Decision: d}
		}
	}

	attempts := deps.MaxAttempts
	if attempts <= 0 {
		attempts = DefaultIssueAttempts
	}

	var lastErr error
	used := 0
	for i := 1; i <= attempts; i++ {
		used = i
		tok, err := deps.GenerateToken()
		if err != nil {
			return IssueResult{Failure: IssueFailureGenerate, Err: err, Decision: decision, Attempts: i}
		}

		now := deps.Now()
		rec := &token.Record{
			Token:     tok,
			CreatedAt: now,
			ExpiresAt: now.Add(deps.Lifetime),
		}

		err = deps.Store.Put(ctx, rec)
		if err == nil {
			return IssueResult{Record: rec, Decision: decision, Attempts: i}
		}
		lastErr = err
		if !errors.Is(err, token.ErrConflict) {
			break
		}
	}

	return IssueResult{Failure: IssueFailureStore, Err: lastErr, Decision: decision, Attempts: used}
}
