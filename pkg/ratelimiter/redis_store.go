package ratelimiter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// consumeScript runs the bucket arithmetic on the server so concurrent API
// processes see one state. Times are unix milliseconds.
//
// KEYS[1] bucket hash; ARGV: capacity, refill rate, interval ms, now ms, n.
// Returns {remaining, reset ms}.
var consumeScript = redis.NewScript(`
local capacity = tonumber(ARGV[1])
local rate     = tonumber(ARGV[2])
local interval = tonumber(ARGV[3])
local now      = tonumber(ARGV[4])
local n        = tonumber(ARGV[5])

local state  = redis.call("HMGET", KEYS[1], "tokens", "last")
local tokens = tonumber(state[1])
local last   = tonumber(state[2])
if tokens == nil then
	tokens = capacity
	last = now
end

if tokens >= capacity then
	tokens = capacity
	last = now
else
	local intervals = math.floor((now - last) / interval)
	if intervals > 0 then
		intervals = math.min(intervals, math.floor(capacity / rate) + 1)
		tokens = math.min(tokens + intervals * rate, capacity)
		last = last + intervals * interval
	end
end

local remaining = tokens - n
if remaining >= 0 then
	tokens = remaining
end

redis.call("HSET", KEYS[1], "tokens", tokens, "last", last)
redis.call("PEXPIRE", KEYS[1], math.ceil(capacity / rate + 1) * interval)
return {remaining, last + interval}
`)

// RedisStore keeps buckets in Redis hashes under a key prefix.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	now    func() time.Time
}

// RedisStoreOption configures a RedisStore.
type RedisStoreOption func(*RedisStore)

// WithRedisPrefix sets the key prefix. Default "spool:ratelimit:".
func WithRedisPrefix(prefix string) RedisStoreOption {
	return func(rs *RedisStore) {
		if prefix != "" {
			rs.prefix = prefix
		}
	}
}

// NewRedisStore creates a store on client.
func NewRedisStore(client redis.UniversalClient, opts ...RedisStoreOption) *RedisStore {
	rs := &RedisStore{client: client, prefix: "spool:ratelimit:", now: time.Now}
	for _, opt := range opts {
		opt(rs)
	}
	return rs
}

func (rs *RedisStore) Consume(ctx context.Context, key string, n int, cfg Config) (int, time.Time, error) {
	res, err := consumeScript.Run(ctx, rs.client, []string{rs.prefix + key},
		cfg.Capacity, cfg.RefillRate, cfg.RefillInterval.Milliseconds(), rs.now().UnixMilli(), n,
	).Int64Slice()
	if err != nil {
		return 0, time.Time{}, errors.Join(ErrStoreUnavailable, err)
	}
	if len(res) != 2 {
		return 0, time.Time{}, fmt.Errorf("%w: unexpected script reply %v", ErrStoreUnavailable, res)
	}
	return int(res[0]), time.UnixMilli(res[1]), nil
}

func (rs *RedisStore) Reset(ctx context.Context, key string) error {
	if err := rs.client.Del(ctx, rs.prefix+key).Err(); err != nil {
		return errors.Join(ErrStoreUnavailable, err)
	}
	return nil
}
