package rate

import (
	"context"
	"sync"
	"time"
)

const memoryPruneEvery = 1024

type memoryCounter struct {
	count     int64
	windowEnd time.Time
}

// MemoryBackend keeps counters in process memory. It suits single-instance
// deployments and tests.
type MemoryBackend struct {
	mu       sync.Mutex
	counters map[string]*memoryCounter
	now      func() time.Time
	ops      int
}

// NewMemoryBackend returns an empty backend. A nil now uses time.Now.
func NewMemoryBackend(now func() time.Time) *MemoryBackend {
	if now == nil {
		now = time.Now
	}
	return &MemoryBackend{
		counters: make(map[string]*memoryCounter),
		now:      now,
	}
}

// Incr implements [Backend].
func (b *MemoryBackend) Incr(ctx context.Context, key string, period time.Duration) (int64, time.Duration, error) {
	if err := ctx.Err(); err != nil {
		return 0, 0, err
	}

	now := b.now()

	b.mu.Lock()
	defer b.mu.Unlock()

	b.ops++
	if b.ops%memoryPruneEvery == 0 {
		b.pruneLocked(now)
	}

	c, ok := b.counters[key]
	if !ok || !now.Before(c.windowEnd) {
		c = &memoryCounter{windowEnd: now.Add(period)}
		b.counters[key] = c
	}
	c.count++

	return c.count, c.windowEnd.Sub(now), nil
}

// Len returns the number of tracked keys.
func (b *MemoryBackend) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.counters)
}

func (b *MemoryBackend) pruneLocked(now time.Time) {
	for k, c := range b.counters {
		if !now.Before(c.windowEnd) {
			delete(b.counters, k)
		}
	}
}
