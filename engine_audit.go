package sessiongate

import (
	"context"
	"errors"
	"strconv"

	"github.com/MrEthical07/sessiongate/internal"
	internalaudit "github.com/MrEthical07/sessiongate/internal/audit"
)

const (
	auditEventTokenIssued          = "token_issued"
	auditEventTokenIssueFailed     = "token_issue_failed"
	auditEventTokenIssueRateLimit  = "token_issue_rate_limited"
	auditEventTokenRejected        = "token_rejected"
	auditEventTokenExpiredPurged   = "token_expired_purged"
	auditEventTokenRevoked         = "token_revoked"
	auditEventRateLimitTriggered   = "rate_limit_triggered"
	auditEventCookieRejected       = "session_cookie_rejected"
	auditEventRateLimitUnavailable = "rate_limit_backend_unavailable"
)

// AuditErrorCode is the stable error classification written to AuditEvent.Error.
type AuditErrorCode string

const (
	auditErrTokenMissing     AuditErrorCode = "token_missing"
	auditErrTokenInvalid     AuditErrorCode = "token_invalid"
	auditErrTokenExpired     AuditErrorCode = "token_expired"
	auditErrRateLimited      AuditErrorCode = "rate_limited"
	auditErrCookieInvalid    AuditErrorCode = "cookie_invalid"
	auditErrIssuanceFailed   AuditErrorCode = "issuance_failed"
	auditErrStoreUnavailable AuditErrorCode = "backend_unavailable"
	auditErrInternal         AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	tok string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		ID:        internalaudit.NewEventID(),
		Timestamp: e.now().UTC(),
		EventType: eventType,
		TokenFP:   internal.Fingerprint(tok),
		IP:        clientIPFromContext(ctx),
		RequestID: RequestIDFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func (e *Engine) emitRateLimit(ctx context.Context, scope RateLimitScope, d RateDecision) {
	if scope == RateLimitGeneral {
		e.metricInc(MetricRateLimitHit)
	} else {
		e.metricInc(MetricIssueRateLimited)
	}

	eventType := auditEventRateLimitTriggered
	if scope == RateLimitIssuance {
		eventType = auditEventTokenIssueRateLimit
	}
	e.emitAudit(ctx, eventType, false, "", ErrRateLimited, func() map[string]string {
		return map[string]string{
			"scope": string(scope),
			"limit": strconv.Itoa(d.Limit),
			"reset": strconv.FormatInt(d.Reset.Unix(), 10),
		}
	})
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrTokenMissing):
		return auditErrTokenMissing
	case errors.Is(err, ErrTokenInvalid):
		return auditErrTokenInvalid
	case errors.Is(err, ErrTokenExpired):
		return auditErrTokenExpired
	case errors.Is(err, ErrRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrCookieInvalid):
		return auditErrCookieInvalid
	case errors.Is(err, ErrStoreUnavailable),
		errors.Is(err, ErrRateLimiterUnavailable),
		errors.Is(err, ErrRevokeFailed):
		return auditErrStoreUnavailable
	case errors.Is(err, ErrIssuanceFailed):
		return auditErrIssuanceFailed
	default:
		return auditErrInternal
	}
}
