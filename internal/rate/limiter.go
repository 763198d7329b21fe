package rate

import (
	"context"
	"time"
)

// Window is a fixed-window budget: at most Limit hits per Period.
type Window struct {
	Limit  int
	Period time.Duration
}

// Enabled reports whether the window enforces anything.
func (w Window) Enabled() bool {
	return w.Limit > 0 && w.Period > 0
}

// Decision is the outcome of one [Limiter.Allow] call.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	// Reset is when the current window ends.
	Reset time.Time
}

// RetryAfter returns how long a rejected caller should wait, rounded up to
// whole seconds and at least one second.
func (d Decision) RetryAfter(now time.Time) time.Duration {
	wait := d.Reset.Sub(now)
	if wait <= 0 {
		return time.Second
	}
	return (wait + time.Second - 1).Truncate(time.Second)
}

// Backend counts hits per key inside fixed windows.
type Backend interface {
	// Incr records one hit and returns the count in the current window and
	// the time left until it resets.
	Incr(ctx context.Context, key string, period time.Duration) (count int64, ttl time.Duration, err error)
}

// Limiter applies one [Window] to keys under a fixed prefix.
type Limiter struct {
	backend Backend
	prefix  string
	window  Window
	now     func() time.Time
}

// New creates a limiter. Keys are stored as prefix+key.
func New(backend Backend, prefix string, window Window) *Limiter {
	return &Limiter{
		backend: backend,
		prefix:  prefix,
		window:  window,
		now:     time.Now,
	}
}

// WithClock overrides the clock used to compute Decision.Reset.
func (l *Limiter) WithClock(now func() time.Time) *Limiter {
	if now != nil {
		l.now = now
	}
	return l
}

// Window returns the configured budget.
func (l *Limiter) Window() Window {
	return l.window
}

// Allow records a hit for key and reports whether it fits the budget.
// A disabled window always allows and never touches the backend.
func (l *Limiter) Allow(ctx context.Context, key string) (Decision, error) {
	if !l.window.Enabled() {
		return Decision{Allowed: true}, nil
	}

	count, ttl, err := l.backend.Incr(ctx, l.prefix+key, l.window.Period)
	if err != nil {
		return Decision{}, err
	}

	remaining := l.window.Limit - int(count)
	if remaining < 0 {
		remaining = 0
	}

	return Decision{
		Allowed:   count <= int64(l.window.Limit),
		Limit:     l.window.Limit,
		Remaining: remaining,
		Reset:     l.now().Add(ttl),
	}, nil
}
