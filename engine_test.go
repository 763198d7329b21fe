package sessiongate

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/sessiongate/internal"
	"github.com/MrEthical07/sessiongate/token"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
		mr.Close()
	})
	return mr, client
}

func newTestEngine(t *testing.T, mutate func(*Config)) (*Engine, *miniredis.Miniredis, *fakeClock) {
	t.Helper()

	mr, rdb := newTestRedis(t)
	clock := newFakeClock()

	cfg := DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}

	engine, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithClock(clock.Now).
		WithMetricsEnabled(true).
		Build()
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	t.Cleanup(func() { _ = engine.Close() })

	return engine, mr, clock
}

func ipContext(ip string) context.Context {
	return WithClientIP(context.Background(), ip)
}

func TestEngineIssueAndValidate(t *testing.T) {
	engine, mr, clock := newTestEngine(t, nil)
	ctx := ipContext("10.0.0.1")

	issued, err := engine.Issue(ctx)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if len(issued.Token) != internal.SessionTokenLen {
		t.Fatalf("expected token length %d, got %d", internal.SessionTokenLen, len(issued.Token))
	}
	if !issued.ExpiresAt.Equal(clock.Now().Add(10 * time.Minute)) {
		t.Fatalf("unexpected expiry %v", issued.ExpiresAt)
	}
	if !mr.Exists("st:" + issued.Token) {
		t.Fatalf("expected record persisted before token returned")
	}

	rec, err := engine.Validate(ctx, issued.Token)
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if rec.Token != issued.Token || !rec.ExpiresAt.Equal(issued.ExpiresAt) {
		t.Fatalf("unexpected record %+v", rec)
	}

	snap := engine.MetricsSnapshot()
	if snap.Counters[MetricTokenIssued] != 1 || snap.Counters[MetricValidateSuccess] != 1 {
		t.Fatalf("unexpected counters %+v", snap.Counters)
	}
}

func TestEngineTokensAreUnique(t *testing.T) {
	engine, _, _ := newTestEngine(t, func(c *Config) {
		c.RateLimit.Issuance.Limit = 0
	})

	seen := make(map[string]struct{})
	for i := 0; i < 50; i++ {
		issued, err := engine.Issue(ipContext("10.0.0.1"))
		if err != nil {
			t.Fatalf("issue %d failed: %v", i, err)
		}
		if _, dup := seen[issued.Token]; dup {
			t.Fatalf("duplicate token %q", issued.Token)
		}
		seen[issued.Token] = struct{}{}
	}
}

func TestEngineExpiryTimeline(t *testing.T) {
	engine, mr, clock := newTestEngine(t, nil)
	ctx := ipContext("10.0.0.2")

	issued, err := engine.Issue(ctx)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	clock.Advance(9*time.Minute + 59*time.Second)
	if _, err := engine.Validate(ctx, issued.Token); err != nil {
		t.Fatalf("expected token valid at 9:59, got %v", err)
	}

	clock.Advance(2 * time.Second)
	if _, err := engine.Validate(ctx, issued.Token); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired at 10:01, got %v", err)
	}
	if mr.Exists("st:" + issued.Token) {
		t.Fatalf("expected expired record deleted on read")
	}

	clock.Advance(time.Minute)
	if _, err := engine.Validate(ctx, issued.Token); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid after purge, got %v", err)
	}

	snap := engine.MetricsSnapshot()
	if snap.Counters[MetricValidateExpired] != 1 || snap.Counters[MetricExpiredPurged] != 1 {
		t.Fatalf("unexpected counters %+v", snap.Counters)
	}
}

func TestEngineExpiresExactlyAtBoundary(t *testing.T) {
	engine, _, clock := newTestEngine(t, nil)
	ctx := ipContext("10.0.0.3")

	issued, err := engine.Issue(ctx)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	clock.Advance(10 * time.Minute)
	if _, err := engine.Validate(ctx, issued.Token); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired at now == ExpiresAt, got %v", err)
	}
}

func TestEngineValidateClassification(t *testing.T) {
	engine, _, _ := newTestEngine(t, nil)
	ctx := ipContext("10.0.0.4")

	if _, err := engine.Validate(ctx, ""); !errors.Is(err, ErrTokenMissing) {
		t.Fatalf("expected ErrTokenMissing, got %v", err)
	}
	if _, err := engine.Validate(ctx, "not-a-token"); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for malformed token, got %v", err)
	}

	unknown, err := internal.NewSessionToken()
	if err != nil {
		t.Fatalf("token generation failed: %v", err)
	}
	if _, err := engine.Validate(ctx, unknown); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for unknown token, got %v", err)
	}

	snap := engine.MetricsSnapshot()
	if snap.Counters[MetricValidateMissing] != 1 || snap.Counters[MetricValidateInvalid] != 2 {
		t.Fatalf("unexpected counters %+v", snap.Counters)
	}
}

func TestEngineValidateFailsClosedWhenStoreDown(t *testing.T) {
	engine, mr, _ := newTestEngine(t, func(c *Config) {
		c.RateLimit.Issuance.Limit = 0
	})
	ctx := ipContext("10.0.0.5")

	issued, err := engine.Issue(ctx)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	mr.SetError("LOADING")
	_, err = engine.Validate(ctx, issued.Token)
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
	mr.SetError("")
}

func TestEngineIssuanceRateLimit(t *testing.T) {
	engine, mr, _ := newTestEngine(t, nil)
	ctx := ipContext("10.0.0.6")

	for i := 0; i < 5; i++ {
		if _, err := engine.Issue(ctx); err != nil {
			t.Fatalf("issue %d failed: %v", i, err)
		}
	}

	_, err := engine.Issue(ctx)
	if !errors.Is(err, ErrIssueRateLimited) || !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected issuance rate limit, got %v", err)
	}
	var rle *RateLimitError
	if !errors.As(err, &rle) {
		t.Fatalf("expected *RateLimitError, got %T", err)
	}
	if rle.Scope != RateLimitIssuance || rle.Decision.Remaining != 0 || rle.Decision.Limit != 5 {
		t.Fatalf("unexpected decision %+v", rle)
	}

	other := ipContext("10.0.0.7")
	if _, err := engine.Issue(other); err != nil {
		t.Fatalf("other IP should have its own budget: %v", err)
	}

	mr.FastForward(61 * time.Second)
	if _, err := engine.Issue(ctx); err != nil {
		t.Fatalf("expected issuance after window reset, got %v", err)
	}

	if got := engine.MetricsSnapshot().Counters[MetricIssueRateLimited]; got != 1 {
		t.Fatalf("expected 1 issuance rejection, got %d", got)
	}
}

func TestEngineIssuanceRejectionMintsNothing(t *testing.T) {
	engine, mr, _ := newTestEngine(t, func(c *Config) {
		c.RateLimit.Issuance.Limit = 1
	})
	ctx := ipContext("10.0.0.8")

	if _, err := engine.Issue(ctx); err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	before := len(mr.Keys())
	if _, err := engine.Issue(ctx); !errors.Is(err, ErrIssueRateLimited) {
		t.Fatalf("expected rate limit, got %v", err)
	}
	if after := len(mr.Keys()); after != before {
		t.Fatalf("expected no new keys after rejection, before=%d after=%d", before, after)
	}
}

func TestEngineIssueFailsWhenStoreDown(t *testing.T) {
	mr, rdb := newTestRedis(t)
	clock := newFakeClock()
	cfg := DefaultConfig()
	cfg.RateLimit.Backend = StoreBackendMemory

	engine, err := New().WithConfig(cfg).WithRedis(rdb).WithClock(clock.Now).Build()
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	defer engine.Close()

	mr.SetError("READONLY")
	issued, err := engine.Issue(ipContext("10.0.0.9"))
	if !errors.Is(err, ErrIssuanceFailed) {
		t.Fatalf("expected ErrIssuanceFailed, got %v", err)
	}
	if issued != nil {
		t.Fatalf("expected no token on store failure")
	}
}

func TestEngineIssueFailsClosedWhenLimiterDown(t *testing.T) {
	engine, mr, _ := newTestEngine(t, nil)

	mr.SetError("LOADING")
	_, err := engine.Issue(ipContext("10.0.0.10"))
	if !errors.Is(err, ErrIssuanceFailed) || !errors.Is(err, ErrRateLimiterUnavailable) {
		t.Fatalf("expected limiter failure to block issuance, got %v", err)
	}
	mr.SetError("")
}

func TestEngineAllowRequestGeneralLimit(t *testing.T) {
	engine, mr, _ := newTestEngine(t, func(c *Config) {
		c.RateLimit.General = WindowConfig{Limit: 3, Period: time.Minute}
	})
	ctx := ipContext("10.0.1.1")

	for i := 0; i < 3; i++ {
		d, err := engine.AllowRequest(ctx)
		if err != nil {
			t.Fatalf("request %d rejected: %v", i, err)
		}
		if d.Remaining != 2-i {
			t.Fatalf("request %d: expected remaining %d, got %d", i, 2-i, d.Remaining)
		}
	}

	d, err := engine.AllowRequest(ctx)
	if !errors.Is(err, ErrRateLimited) || errors.Is(err, ErrIssueRateLimited) {
		t.Fatalf("expected general rate limit, got %v", err)
	}
	if d.Allowed || d.Remaining != 0 {
		t.Fatalf("unexpected decision %+v", d)
	}

	mr.FastForward(time.Minute)
	if _, err := engine.AllowRequest(ctx); err != nil {
		t.Fatalf("expected fresh window, got %v", err)
	}
}

func TestEngineCallsWithoutClientIPShareBucket(t *testing.T) {
	engine, _, _ := newTestEngine(t, func(c *Config) {
		c.RateLimit.Issuance = WindowConfig{Limit: 2, Period: time.Minute}
	})

	for i := 0; i < 2; i++ {
		if _, err := engine.Issue(context.Background()); err != nil {
			t.Fatalf("issue %d failed: %v", i, err)
		}
	}
	if _, err := engine.Issue(context.TODO()); !errors.Is(err, ErrIssueRateLimited) {
		t.Fatalf("expected calls without a client IP to share one budget, got %v", err)
	}
	if _, err := engine.Issue(ipContext("10.0.2.1")); err != nil {
		t.Fatalf("explicit IP should have its own budget: %v", err)
	}
}

func TestEngineLimitersAreIndependent(t *testing.T) {
	engine, _, _ := newTestEngine(t, func(c *Config) {
		c.RateLimit.General = WindowConfig{Limit: 1, Period: time.Minute}
	})
	ctx := ipContext("10.0.1.2")

	if _, err := engine.AllowRequest(ctx); err != nil {
		t.Fatalf("first request rejected: %v", err)
	}
	if _, err := engine.AllowRequest(ctx); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected general limit, got %v", err)
	}
	if _, err := engine.Issue(ctx); err != nil {
		t.Fatalf("issuance must not be charged to the general budget: %v", err)
	}
}

func TestEngineAllowRequestFailsClosed(t *testing.T) {
	engine, mr, _ := newTestEngine(t, nil)

	mr.SetError("LOADING")
	_, err := engine.AllowRequest(ipContext("10.0.1.3"))
	if !errors.Is(err, ErrRateLimiterUnavailable) {
		t.Fatalf("expected ErrRateLimiterUnavailable, got %v", err)
	}
	mr.SetError("")

	if got := engine.MetricsSnapshot().Counters[MetricRateLimitBackendError]; got != 1 {
		t.Fatalf("expected backend error counted, got %d", got)
	}
}

func TestEngineRevoke(t *testing.T) {
	engine, _, _ := newTestEngine(t, nil)
	ctx := ipContext("10.0.1.4")

	issued, err := engine.Issue(ctx)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if err := engine.Revoke(ctx, issued.Token); err != nil {
		t.Fatalf("revoke failed: %v", err)
	}
	if _, err := engine.Validate(ctx, issued.Token); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected revoked token invalid, got %v", err)
	}
	if err := engine.Revoke(ctx, issued.Token); err != nil {
		t.Fatalf("second revoke should succeed: %v", err)
	}
}

func TestEngineConcurrentValidate(t *testing.T) {
	engine, _, _ := newTestEngine(t, nil)
	ctx := ipContext("10.0.1.5")

	issued, err := engine.Issue(ctx)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 64)
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := engine.Validate(ctx, issued.Token); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent validate failed: %v", err)
	}
}

func TestEngineMemoryBackend(t *testing.T) {
	clock := newFakeClock()
	cfg := DefaultConfig()
	cfg.Store.Backend = StoreBackendMemory

	engine, err := New().WithConfig(cfg).WithClock(clock.Now).Build()
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	defer engine.Close()

	ctx := ipContext("10.0.2.1")
	issued, err := engine.Issue(ctx)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if _, err := engine.Validate(ctx, issued.Token); err != nil {
		t.Fatalf("validate failed: %v", err)
	}

	for i := 0; i < 4; i++ {
		if _, err := engine.Issue(ctx); err != nil {
			t.Fatalf("issue %d failed: %v", i, err)
		}
	}
	if _, err := engine.Issue(ctx); !errors.Is(err, ErrIssueRateLimited) {
		t.Fatalf("expected memory limiter to enforce issuance budget, got %v", err)
	}

	clock.Advance(time.Minute)
	if _, err := engine.Issue(ctx); err != nil {
		t.Fatalf("expected fresh window on memory limiter, got %v", err)
	}
}

func TestEngineBadgerBackend(t *testing.T) {
	clock := newFakeClock()
	cfg := DefaultConfig()
	cfg.Store.Backend = StoreBackendBadger
	cfg.Store.BadgerInMemory = true

	engine, err := New().WithConfig(cfg).WithClock(clock.Now).Build()
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	ctx := ipContext("10.0.2.2")
	issued, err := engine.Issue(ctx)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if _, err := engine.Validate(ctx, issued.Token); err != nil {
		t.Fatalf("validate failed: %v", err)
	}

	clock.Advance(11 * time.Minute)
	if _, err := engine.Validate(ctx, issued.Token); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}

	if err := engine.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if err := engine.Close(); err != nil {
		t.Fatalf("second close failed: %v", err)
	}
}

func TestEngineCustomStore(t *testing.T) {
	store := token.NewMemoryStore(time.Minute)
	cfg := DefaultConfig()
	cfg.RateLimit.Backend = StoreBackendMemory

	engine, err := New().WithConfig(cfg).WithStore(store).Build()
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	defer engine.Close()

	issued, err := engine.Issue(ipContext("10.0.2.3"))
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if _, err := store.Get(context.Background(), issued.Token); err != nil {
		t.Fatalf("expected record in supplied store: %v", err)
	}
	if got := engine.SecurityReport().StoreBackend; got != "custom" {
		t.Fatalf("expected custom store in report, got %q", got)
	}
}

func TestBuilderRequiresRedisForRedisBackend(t *testing.T) {
	if _, err := New().Build(); err == nil {
		t.Fatalf("expected error without redis client")
	}
}

func TestBuilderSingleUse(t *testing.T) {
	_, rdb := newTestRedis(t)
	b := New().WithRedis(rdb)

	engine, err := b.Build()
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	defer engine.Close()

	if _, err := b.Build(); err == nil {
		t.Fatalf("expected second build to fail")
	}
}

func TestBuilderRejectsInvalidConfig(t *testing.T) {
	_, rdb := newTestRedis(t)
	cfg := DefaultConfig()
	cfg.Token.Lifetime = 0

	if _, err := New().WithConfig(cfg).WithRedis(rdb).Build(); err == nil {
		t.Fatalf("expected invalid config to be rejected")
	}
}

func TestNilEngineNotReady(t *testing.T) {
	var e *Engine
	if _, err := e.Issue(context.Background()); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("expected ErrEngineNotReady, got %v", err)
	}
	if _, err := e.Validate(context.Background(), "x"); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("expected ErrEngineNotReady, got %v", err)
	}
	if err := e.Close(); err != nil {
		t.Fatalf("nil close should be a no-op: %v", err)
	}
}
