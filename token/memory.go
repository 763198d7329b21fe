package token

import (
	"context"
	"sync"
	"time"

	"github.com/spaolacci/murmur3"
)

const memoryShardCount = 32

type memoryShard struct {
	mu      sync.RWMutex
	records map[string]Record
}

// MemoryStore is an in-process [Store] split into independently locked shards.
//
// Expired records stay until [MemoryStore.Sweep] removes them or the
// validator deletes them; Get returns them unchanged.
type MemoryStore struct {
	shards [memoryShardCount]*memoryShard
	grace  time.Duration
	now    func() time.Time
}

// NewMemoryStore returns an empty store. A non-positive grace falls back to
// [DefaultEvictionGrace].
func NewMemoryStore(grace time.Duration) *MemoryStore {
	if grace <= 0 {
		grace = DefaultEvictionGrace
	}
	s := &MemoryStore{grace: grace, now: time.Now}
	for i := range s.shards {
		s.shards[i] = &memoryShard{records: make(map[string]Record)}
	}
	return s
}

// SetClock overrides the clock used by the sweeper.
func (s *MemoryStore) SetClock(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

func (s *MemoryStore) shard(tok string) *memoryShard {
	return s.shards[murmur3.Sum32([]byte(tok))%memoryShardCount]
}

// Put stores a copy of rec unless the token already exists.
func (s *MemoryStore) Put(ctx context.Context, rec *Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := Encode(rec); err != nil {
		return err
	}

	sh := s.shard(rec.Token)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if _, ok := sh.records[rec.Token]; ok {
		return ErrConflict
	}
	sh.records[rec.Token] = *rec
	return nil
}

// Get returns a copy of the stored record.
func (s *MemoryStore) Get(ctx context.Context, tok string) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sh := s.shard(tok)
	sh.mu.RLock()
	rec, ok := sh.records[tok]
	sh.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return &rec, nil
}

// Delete removes tok if present.
func (s *MemoryStore) Delete(ctx context.Context, tok string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	sh := s.shard(tok)
	sh.mu.Lock()
	delete(sh.records, tok)
	sh.mu.Unlock()
	return nil
}

// Len returns the number of physically present records.
func (s *MemoryStore) Len() int {
	n := 0
	for _, sh := range s.shards {
		sh.mu.RLock()
		n += len(sh.records)
		sh.mu.RUnlock()
	}
	return n
}

// Sweep evicts records whose expiry plus grace is at or before now and
// returns how many were removed.
func (s *MemoryStore) Sweep(now time.Time) int {
	removed := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		for tok, rec := range sh.records {
			if !now.Before(rec.ExpiresAt.Add(s.grace)) {
				delete(sh.records, tok)
				removed++
			}
		}
		sh.mu.Unlock()
	}
	return removed
}

// Run sweeps every interval until ctx is done. onSweep, when non-nil,
// receives the count removed by each pass.
func (s *MemoryStore) Run(ctx context.Context, interval time.Duration, onSweep func(int)) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n := s.Sweep(s.now())
			if onSweep != nil {
				onSweep(n)
			}
		}
	}
}
