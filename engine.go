package sessiongate

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/MrEthical07/sessiongate/internal"
	internalaudit "github.com/MrEthical07/sessiongate/internal/audit"
	"github.com/MrEthical07/sessiongate/internal/flows"
	"github.com/MrEthical07/sessiongate/internal/rate"
	"github.com/MrEthical07/sessiongate/jwt"
	"github.com/MrEthical07/sessiongate/token"
	"github.com/rs/zerolog"
)

// Engine defines a public type used by sessiongate APIs.
//
// Engine instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
// All methods are safe for concurrent use.
type Engine struct {
	config         Config
	store          token.Store
	customStore    bool
	flows          flows.Service
	generalLimiter *rate.Limiter
	issueLimiter   *rate.Limiter
	cookies        *jwt.Manager
	sameSite       http.SameSite
	audit          *internalaudit.Dispatcher
	metrics        *Metrics
	logger         zerolog.Logger
	now            func() time.Time

	backgroundCtx  context.Context
	stopBackground context.CancelFunc
	background     sync.WaitGroup
	closers        []func() error
	closeOnce      sync.Once
	closeErr       error
}

// Close stops background maintenance, flushes the audit dispatcher and
// releases stores the engine opened itself. It is safe to call more than once.
func (e *Engine) Close() error {
	if e == nil {
		return nil
	}
	e.closeOnce.Do(func() {
		if e.stopBackground != nil {
			e.stopBackground()
		}
		e.background.Wait()
		if e.audit != nil {
			e.audit.Close()
		}
		var errs []error
		for _, c := range e.closers {
			if err := c(); err != nil {
				errs = append(errs, err)
			}
		}
		e.closeErr = errors.Join(errs...)
	})
	return e.closeErr
}

// AuditDropped describes the auditdropped operation and its observable behavior.
//
// AuditDropped does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot describes the metricssnapshot operation and its observable behavior.
//
// MetricsSnapshot does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// Config returns a copy of the effective configuration.
func (e *Engine) Config() Config {
	return e.config
}

// HeaderName is the request header that carries the session token.
func (e *Engine) HeaderName() string {
	return e.config.Token.HeaderName
}

// Now returns the engine clock's current time.
func (e *Engine) Now() time.Time {
	if e == nil || e.now == nil {
		return time.Now()
	}
	return e.now()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// Issue mints a new session token for the client IP carried by ctx.
//
// The issuance limit is checked first; a rejected call returns a
// *RateLimitError matching ErrIssueRateLimited and mints nothing. Any store
// or limiter failure returns ErrIssuanceFailed and no token.
//
// A ctx without [WithClientIP] is keyed on the empty IP, so all such callers
// share a single issuance budget.
func (e *Engine) Issue(ctx context.Context) (*IssuedToken, error) {
	if e == nil || !e.flows.Initialized() {
		return nil, ErrEngineNotReady
	}

	res := e.flows.Issue(ctx, clientIPFromContext(ctx))
	switch res.Failure {
	case flows.IssueFailureNone:
		e.metricInc(MetricTokenIssued)
		e.emitAudit(ctx, auditEventTokenIssued, true, res.Record.Token, nil, nil)
		return &IssuedToken{
			Token:     res.Record.Token,
			IssuedAt:  res.Record.CreatedAt,
			ExpiresAt: res.Record.ExpiresAt,
		}, nil

	case flows.IssueFailureRateLimited:
		e.emitRateLimit(ctx, RateLimitIssuance, res.Decision)
		return nil, &RateLimitError{Scope: RateLimitIssuance, Decision: res.Decision}

	case flows.IssueFailureLimiter:
		e.metricInc(MetricRateLimitBackendError)
		e.metricInc(MetricIssueFailure)
		e.logger.Warn().Err(res.Err).Str("scope", string(RateLimitIssuance)).Msg("rate limiter backend unavailable")
		err := fmt.Errorf("%w: %w", ErrIssuanceFailed, ErrRateLimiterUnavailable)
		e.emitAudit(ctx, auditEventTokenIssueFailed, false, "", err, nil)
		return nil, err

	default:
		e.metricInc(MetricIssueFailure)
		e.logger.Warn().Err(res.Err).Int("attempts", res.Attempts).Msg("session token issuance failed")
		err := fmt.Errorf("%w: %v", ErrIssuanceFailed, res.Err)
		e.emitAudit(ctx, auditEventTokenIssueFailed, false, "", err, nil)
		return nil, err
	}
}

// Validate classifies tok and returns its record when it is live.
//
// Errors: ErrTokenMissing for an empty token, ErrTokenInvalid for unknown or
// malformed tokens, ErrTokenExpired once now >= ExpiresAt (the record is
// deleted as a side effect), ErrStoreUnavailable when the store fails. No
// error path ever admits the request.
func (e *Engine) Validate(ctx context.Context, tok string) (*SessionRecord, error) {
	if e == nil || !e.flows.Initialized() {
		return nil, ErrEngineNotReady
	}
	if e.metrics.LatencyEnabled() {
		start := time.Now()
		defer func() {
			e.metrics.Observe(MetricValidateLatency, time.Since(start))
		}()
	}

	res := e.flows.Validate(ctx, tok)
	if res.Purged {
		e.metricInc(MetricExpiredPurged)
	}
	if res.PurgeErr != nil {
		e.logger.Warn().Err(res.PurgeErr).Str("token_fp", internal.Fingerprint(tok)).Msg("failed to delete rejected session token")
	}

	switch res.Failure {
	case flows.ValidateFailureNone:
		e.metricInc(MetricValidateSuccess)
		return res.Record, nil

	case flows.ValidateFailureMissing:
		e.metricInc(MetricValidateMissing)
		e.emitAudit(ctx, auditEventTokenRejected, false, "", ErrTokenMissing, nil)
		return nil, ErrTokenMissing

	case flows.ValidateFailureInvalid:
		e.metricInc(MetricValidateInvalid)
		e.emitAudit(ctx, auditEventTokenRejected, false, tok, ErrTokenInvalid, nil)
		return nil, ErrTokenInvalid

	case flows.ValidateFailureExpired:
		e.metricInc(MetricValidateExpired)
		eventType := auditEventTokenRejected
		if res.Purged {
			eventType = auditEventTokenExpiredPurged
		}
		e.emitAudit(ctx, eventType, false, tok, ErrTokenExpired, nil)
		return nil, ErrTokenExpired

	default:
		e.metricInc(MetricValidateUnavailable)
		e.logger.Warn().Err(res.Err).Msg("session store unavailable during validation")
		err := fmt.Errorf("%w: %v", ErrStoreUnavailable, res.Err)
		e.emitAudit(ctx, auditEventTokenRejected, false, tok, err, nil)
		return nil, err
	}
}

// Revoke deletes tok server-side. Unknown tokens are not an error.
func (e *Engine) Revoke(ctx context.Context, tok string) error {
	if e == nil || !e.flows.Initialized() {
		return ErrEngineNotReady
	}
	if err := e.flows.Revoke(ctx, tok); err != nil {
		e.logger.Warn().Err(err).Str("token_fp", internal.Fingerprint(tok)).Msg("session token revocation failed")
		wrapped := fmt.Errorf("%w: %v", ErrRevokeFailed, err)
		e.emitAudit(ctx, auditEventTokenRevoked, false, tok, wrapped, nil)
		return wrapped
	}
	e.metricInc(MetricTokenRevoked)
	e.emitAudit(ctx, auditEventTokenRevoked, true, tok, nil, nil)
	return nil
}

// AllowRequest charges one request against the general limit for the client
// IP in ctx. It never touches the token store.
//
// A spent budget returns the decision together with a *RateLimitError. A
// limiter backend failure returns ErrRateLimiterUnavailable. As with Issue,
// callers without [WithClientIP] share the empty-IP bucket.
func (e *Engine) AllowRequest(ctx context.Context) (RateDecision, error) {
	if e == nil || e.generalLimiter == nil {
		return RateDecision{}, ErrEngineNotReady
	}

	d, err := e.generalLimiter.Allow(ctx, clientIPFromContext(ctx))
	if err != nil {
		e.metricInc(MetricRateLimitBackendError)
		e.logger.Warn().Err(err).Str("scope", string(RateLimitGeneral)).Msg("rate limiter backend unavailable")
		e.emitAudit(ctx, auditEventRateLimitUnavailable, false, "", ErrRateLimiterUnavailable, nil)
		return RateDecision{}, fmt.Errorf("%w: %v", ErrRateLimiterUnavailable, err)
	}
	if !d.Allowed {
		e.emitRateLimit(ctx, RateLimitGeneral, d)
		return d, &RateLimitError{Scope: RateLimitGeneral, Decision: d}
	}
	return d, nil
}

func (e *Engine) startBackground(fn func(ctx context.Context)) {
	if e.stopBackground == nil {
		ctx, cancel := context.WithCancel(context.Background())
		e.stopBackground = cancel
		e.backgroundCtx = ctx
	}
	e.background.Add(1)
	go func() {
		defer e.background.Done()
		fn(e.backgroundCtx)
	}()
}
