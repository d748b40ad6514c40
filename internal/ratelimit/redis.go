package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const DefaultKeyPrefix = "rate_limit:"

// hitScript runs the window reset and the increment atomically on a hash per key.
//
// KEYS[1]: counter key
// ARGV[1]: now, unix milliseconds
// ARGV[2]: window length, milliseconds
//
// Returns {count, reset_at}.
var hitScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])

local reset_at = tonumber(redis.call('HGET', key, 'reset_at'))
if not reset_at or reset_at <= now then
	reset_at = now + window
	redis.call('HSET', key, 'count', 0, 'reset_at', reset_at)
	redis.call('PEXPIRE', key, window * 2)
end

local count = redis.call('HINCRBY', key, 'count', 1)

return {count, reset_at}
`)

// RedisStore shares counters between service instances. Unlike MemoryStore,
// idle keys expire after twice the window length.
type RedisStore struct {
	client    redis.Scripter
	keyPrefix string
}

func NewRedisStore(client redis.Scripter, keyPrefix string) *RedisStore {
	if keyPrefix == "" {
		keyPrefix = DefaultKeyPrefix
	}

	return &RedisStore{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

func (s *RedisStore) Hit(ctx context.Context, key string, now time.Time, d time.Duration) (Counter, error) {
	const op = "ratelimit.RedisStore.Hit"

	res, err := hitScript.Run(ctx, s.client, []string{s.keyPrefix + key}, now.UnixMilli(), d.Milliseconds()).Int64Slice()
	if err != nil {
		return Counter{}, fmt.Errorf("%s: failed to run script: %w", op, err)
	}
	if len(res) != 2 {
		return Counter{}, fmt.Errorf("%s: unexpected script result: %v", op, res)
	}

	return Counter{
		Count:   int(res[0]),
		ResetAt: time.UnixMilli(res[1]),
	}, nil
}
