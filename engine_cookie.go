package sessiongate

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/MrEthical07/sessiongate/jwt"
)

// CookiesEnabled reports whether the signed-cookie transport is configured.
func (e *Engine) CookiesEnabled() bool {
	return e != nil && e.cookies != nil
}

// CookieName is the configured session cookie name.
func (e *Engine) CookieName() string {
	return e.config.Cookie.Name
}

// SessionCookie builds the signed http-only cookie carrying issued. The
// cookie expires together with the token.
func (e *Engine) SessionCookie(issued *IssuedToken) (*http.Cookie, error) {
	if !e.CookiesEnabled() {
		return nil, ErrCookieDisabled
	}
	if issued == nil || issued.Token == "" {
		return nil, ErrTokenMissing
	}

	issuedAt := issued.IssuedAt
	if issuedAt.IsZero() {
		issuedAt = e.now()
	}
	value, err := e.cookies.CreateCookie(issued.Token, issuedAt, issued.ExpiresAt)
	if err != nil {
		return nil, err
	}

	maxAge := int(issued.ExpiresAt.Sub(e.now()) / time.Second)
	if maxAge <= 0 {
		maxAge = -1
	}
	return &http.Cookie{
		Name:     e.config.Cookie.Name,
		Value:    value,
		Path:     e.config.Cookie.Path,
		Domain:   e.config.Cookie.Domain,
		Expires:  issued.ExpiresAt.UTC(),
		MaxAge:   maxAge,
		Secure:   e.config.Cookie.Secure,
		HttpOnly: true,
		SameSite: e.sameSite,
	}, nil
}

// ExpiredSessionCookie returns a cookie that makes the browser drop the
// session cookie.
func (e *Engine) ExpiredSessionCookie() *http.Cookie {
	return &http.Cookie{
		Name:     e.config.Cookie.Name,
		Value:    "",
		Path:     e.config.Cookie.Path,
		Domain:   e.config.Cookie.Domain,
		Expires:  time.Unix(0, 0).UTC(),
		MaxAge:   -1,
		Secure:   e.config.Cookie.Secure,
		HttpOnly: true,
		SameSite: e.sameSite,
	}
}

// TokenFromCookie verifies a session cookie value and returns the session
// token it carries. A bad signature or claim set maps to ErrTokenInvalid; a
// well-signed cookie past its exp maps to ErrTokenExpired.
func (e *Engine) TokenFromCookie(ctx context.Context, value string) (string, error) {
	if !e.CookiesEnabled() {
		return "", ErrCookieDisabled
	}
	if value == "" {
		return "", ErrTokenMissing
	}

	claims, err := e.cookies.ParseCookie(value)
	if err != nil {
		e.metricInc(MetricCookieRejected)
		if errors.Is(err, jwt.ErrCookieExpired) {
			e.metricInc(MetricValidateExpired)
			e.emitAudit(ctx, auditEventCookieRejected, false, "", ErrTokenExpired, nil)
			return "", ErrTokenExpired
		}
		e.emitAudit(ctx, auditEventCookieRejected, false, "", ErrCookieInvalid, nil)
		return "", fmt.Errorf("%w: %w", ErrTokenInvalid, ErrCookieInvalid)
	}
	return claims.SID, nil
}

// ValidateCookie resolves the cookie to a token and validates it against the
// store.
func (e *Engine) ValidateCookie(ctx context.Context, value string) (*SessionRecord, error) {
	tok, err := e.TokenFromCookie(ctx, value)
	if err != nil {
		return nil, err
	}
	return e.Validate(ctx, tok)
}
