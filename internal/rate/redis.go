package rate

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Fixed-window semantics: PEXPIRE only for the first hit in the window. A key
// that lost its TTL is repaired so it can never count forever.
const fixedWindowScript = `
local count = redis.call("INCR", KEYS[1])
if count == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
if ttl < 0 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
  ttl = tonumber(ARGV[1])
end
return {count, ttl}
`

var fixedWindowLua = redis.NewScript(fixedWindowScript)

// RedisBackend keeps counters in Redis so every server instance shares them.
type RedisBackend struct {
	redis redis.UniversalClient
}

// NewRedisBackend returns a backend using client.
func NewRedisBackend(client redis.UniversalClient) *RedisBackend {
	return &RedisBackend{redis: client}
}

// Incr implements [Backend].
func (b *RedisBackend) Incr(ctx context.Context, key string, period time.Duration) (int64, time.Duration, error) {
	res, err := fixedWindowLua.Run(ctx, b.redis, []string{key}, period.Milliseconds()).Int64Slice()
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	if len(res) != 2 {
		return 0, 0, fmt.Errorf("%w: unexpected script reply", ErrBackendUnavailable)
	}
	return res[0], time.Duration(res[1]) * time.Millisecond, nil
}
