package sessiongate

import (
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"
)

func cookieEngine(t *testing.T, mutate func(*Config)) (*Engine, *fakeClock) {
	t.Helper()
	engine, _, clock := newTestEngine(t, func(c *Config) {
		c.Cookie.Enabled = true
		c.Cookie.Secret = strings.Repeat("s", 32)
		if mutate != nil {
			mutate(c)
		}
	})
	return engine, clock
}

func TestSessionCookieRoundTrip(t *testing.T) {
	engine, clock := cookieEngine(t, nil)
	ctx := ipContext("10.0.4.1")

	issued, err := engine.Issue(ctx)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	cookie, err := engine.SessionCookie(issued)
	if err != nil {
		t.Fatalf("cookie failed: %v", err)
	}
	if cookie.Name != "sg_session" || !cookie.HttpOnly || !cookie.Secure || cookie.SameSite != http.SameSiteLaxMode {
		t.Fatalf("unexpected cookie attributes %+v", cookie)
	}
	if cookie.MaxAge != 600 {
		t.Fatalf("expected MaxAge 600, got %d", cookie.MaxAge)
	}
	if strings.Contains(cookie.Value, issued.Token) {
		t.Fatalf("cookie value should be a signed envelope")
	}

	rec, err := engine.ValidateCookie(ctx, cookie.Value)
	if err != nil {
		t.Fatalf("validate cookie failed: %v", err)
	}
	if rec.Token != issued.Token {
		t.Fatalf("expected token %q, got %q", issued.Token, rec.Token)
	}

	clock.Advance(10*time.Minute + time.Second)
	if _, err := engine.ValidateCookie(ctx, cookie.Value); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired for expired cookie, got %v", err)
	}
}

func TestSessionCookieStoreStaysAuthoritative(t *testing.T) {
	engine, _ := cookieEngine(t, nil)
	ctx := ipContext("10.0.4.2")

	issued, err := engine.Issue(ctx)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	cookie, err := engine.SessionCookie(issued)
	if err != nil {
		t.Fatalf("cookie failed: %v", err)
	}
	if err := engine.Revoke(ctx, issued.Token); err != nil {
		t.Fatalf("revoke failed: %v", err)
	}
	if _, err := engine.ValidateCookie(ctx, cookie.Value); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected revoked token rejected through cookie, got %v", err)
	}
}

func TestSessionCookieTamperedRejected(t *testing.T) {
	engine, _ := cookieEngine(t, nil)
	ctx := ipContext("10.0.4.3")

	issued, err := engine.Issue(ctx)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	cookie, err := engine.SessionCookie(issued)
	if err != nil {
		t.Fatalf("cookie failed: %v", err)
	}

	parts := strings.Split(cookie.Value, ".")
	tampered := parts[0] + "." + parts[1] + "." + strings.Repeat("A", len(parts[2]))
	_, err = engine.TokenFromCookie(ctx, tampered)
	if !errors.Is(err, ErrTokenInvalid) || !errors.Is(err, ErrCookieInvalid) {
		t.Fatalf("expected invalid cookie, got %v", err)
	}
	if got := engine.MetricsSnapshot().Counters[MetricCookieRejected]; got != 1 {
		t.Fatalf("expected rejected cookie counted, got %d", got)
	}
}

func TestSessionCookieEd25519(t *testing.T) {
	seed := make([]byte, 32)
	for i := range seed {
		seed[i] = byte(i)
	}
	engine, _ := cookieEngine(t, func(c *Config) {
		c.Cookie.SigningMethod = "ed25519"
		c.Cookie.Secret = base64.StdEncoding.EncodeToString(seed)
	})
	ctx := ipContext("10.0.4.4")

	issued, err := engine.Issue(ctx)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	cookie, err := engine.SessionCookie(issued)
	if err != nil {
		t.Fatalf("cookie failed: %v", err)
	}
	tok, err := engine.TokenFromCookie(ctx, cookie.Value)
	if err != nil {
		t.Fatalf("parse cookie failed: %v", err)
	}
	if tok != issued.Token {
		t.Fatalf("expected %q, got %q", issued.Token, tok)
	}
}

func TestSessionCookieDisabled(t *testing.T) {
	engine, _, _ := newTestEngine(t, nil)

	if engine.CookiesEnabled() {
		t.Fatal("cookies should be off by default")
	}
	if _, err := engine.SessionCookie(&IssuedToken{Token: "x"}); !errors.Is(err, ErrCookieDisabled) {
		t.Fatalf("expected ErrCookieDisabled, got %v", err)
	}
	if _, err := engine.TokenFromCookie(ipContext("10.0.4.5"), "v"); !errors.Is(err, ErrCookieDisabled) {
		t.Fatalf("expected ErrCookieDisabled, got %v", err)
	}
}

func TestExpiredSessionCookie(t *testing.T) {
	engine, _ := cookieEngine(t, nil)
	c := engine.ExpiredSessionCookie()
	if c.MaxAge >= 0 || c.Value != "" || c.Name != "sg_session" {
		t.Fatalf("unexpected clearing cookie %+v", c)
	}
}
