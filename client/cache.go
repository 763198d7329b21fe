package client

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// DefaultRefreshTimeout bounds one issuance call made on behalf of the cache.
const DefaultRefreshTimeout = 10 * time.Second

const refreshKey = "refresh"

// flightResult is what one refresh flight hands to its waiters. gen is the
// invalidation generation the flight observed when it started.
type flightResult struct {
	token string
	gen   uint64
}

// TokenCache holds at most one session token and runs at most one refresh
// at a time. The zero value is not usable; see [NewTokenCache].
type TokenCache struct {
	issuer  Issuer
	timeout time.Duration
	logger  zerolog.Logger

	mu        sync.Mutex
	current   string
	expiresAt time.Time
	gen       uint64

	group   singleflight.Group
	refresh atomic.Uint64
}

// NewTokenCache returns an empty cache drawing tokens from issuer. A
// non-positive timeout uses [DefaultRefreshTimeout].
func NewTokenCache(issuer Issuer, timeout time.Duration, logger zerolog.Logger) *TokenCache {
	if timeout <= 0 {
		timeout = DefaultRefreshTimeout
	}
	return &TokenCache{
		issuer:  issuer,
		timeout: timeout,
		logger:  logger,
	}
}

// Get returns the cached token, or joins (or starts) the single in-flight
// refresh. Issuance failures are returned as *RefreshError and leave the
// cache empty. If ctx ends first, Get returns ctx.Err() and the refresh
// keeps running for the other waiters.
func (c *TokenCache) Get(ctx context.Context) (string, error) {
	c.mu.Lock()
	tok, gen := c.current, c.gen
	c.mu.Unlock()
	if tok != "" {
		return tok, nil
	}

	// A flight that started before our view of the generation may carry a
	// token that was invalidated since; one more flight is then enough.
	var last string
	for attempt := 0; attempt < 2; attempt++ {
		ch := c.group.DoChan(refreshKey, func() (any, error) {
			return c.runRefresh(ctx)
		})

		select {
		case res := <-ch:
			if res.Err != nil {
				return "", &RefreshError{Err: res.Err}
			}
			fr := res.Val.(flightResult)
			if fr.gen >= gen {
				return fr.token, nil
			}
			last = fr.token
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	return last, nil
}

func (c *TokenCache) runRefresh(caller context.Context) (flightResult, error) {
	c.mu.Lock()
	if c.current != "" {
		fr := flightResult{token: c.current, gen: c.gen}
		c.mu.Unlock()
		return fr, nil
	}
	gen := c.gen
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.WithoutCancel(caller), c.timeout)
	defer cancel()

	c.refresh.Add(1)
	start := time.Now()
	tok, err := c.issuer.Issue(ctx)
	if err != nil {
		c.logger.Debug().Err(err).Dur("took", time.Since(start)).Msg("session token refresh failed")
		return flightResult{}, err
	}

	// An Invalidate that landed during the flight leaves the cache empty so
	// callers holding the newer generation mint again.
	c.mu.Lock()
	if c.gen == gen {
		c.current = tok.Value
		c.expiresAt = tok.ExpiresAt
	}
	c.mu.Unlock()
	c.logger.Debug().Dur("took", time.Since(start)).Time("expires_at", tok.ExpiresAt).Msg("session token refreshed")

	return flightResult{token: tok.Value, gen: gen}, nil
}

// Invalidate drops the cached token so the next Get mints a new one.
func (c *TokenCache) Invalidate() {
	c.mu.Lock()
	c.current = ""
	c.expiresAt = time.Time{}
	c.gen++
	c.mu.Unlock()
}

// Peek returns the cached token and its expiry without refreshing.
func (c *TokenCache) Peek() (string, time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current, c.expiresAt
}

// Refreshes counts issuance calls made by this cache.
func (c *TokenCache) Refreshes() uint64 {
	return c.refresh.Load()
}
