package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore is a [Store] backed by Redis string keys with PX expiry.
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
	grace  time.Duration
}

// NewRedisStore returns a store writing keys as "<prefix>:<token>".
// A non-positive grace falls back to [DefaultEvictionGrace].
func NewRedisStore(client redis.UniversalClient, prefix string, grace time.Duration) *RedisStore {
	if prefix == "" {
		prefix = "st"
	}
	if grace <= 0 {
		grace = DefaultEvictionGrace
	}
	return &RedisStore{
		redis:  client,
		prefix: prefix,
		grace:  grace,
	}
}

func (s *RedisStore) key(tok string) string {
	return s.prefix + ":" + tok
}

// Put writes rec with SET NX so an existing token is never overwritten.
func (s *RedisStore) Put(ctx context.Context, rec *Record) error {
	data, err := Encode(rec)
	if err != nil {
		return err
	}

	ok, err := s.redis.SetNX(ctx, s.key(rec.Token), data, evictionTTL(rec, s.grace)).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if !ok {
		return ErrConflict
	}
	return nil
}

// Get loads the record for tok without checking expiry.
func (s *RedisStore) Get(ctx context.Context, tok string) (*Record, error) {
	data, err := s.redis.Get(ctx, s.key(tok)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return Decode(tok, data)
}

// Delete removes tok. Missing keys are ignored.
func (s *RedisStore) Delete(ctx context.Context, tok string) error {
	if err := s.redis.Del(ctx, s.key(tok)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Ping checks backend reachability.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
