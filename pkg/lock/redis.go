package lock

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultRedisTTL bounds how long an abandoned Redis lock survives its holder.
const DefaultRedisTTL = 45 * time.Minute

// releaseScript deletes the key only while it still carries the caller's token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisOption configures the Redis backend.
type RedisOption func(*redisOptions)

type redisOptions struct {
	prefix string
	ttl    time.Duration
}

// WithRedisPrefix sets the key namespace. Defaults to "spool:lock:".
func WithRedisPrefix(prefix string) RedisOption {
	return func(o *redisOptions) {
		if prefix != "" {
			o.prefix = prefix
		}
	}
}

// WithRedisTTL sets the expiry applied to every acquired key.
// It must exceed the longest time a holder keeps a lock.
func WithRedisTTL(ttl time.Duration) RedisOption {
	return func(o *redisOptions) {
		if ttl > 0 {
			o.ttl = ttl
		}
	}
}

// Redis returns a Factory backed by a Redis server.
func Redis(client redis.UniversalClient, opts ...RedisOption) Factory {
	options := &redisOptions{
		prefix: "spool:lock:",
		ttl:    DefaultRedisTTL,
	}
	for _, opt := range opts {
		opt(options)
	}

	return func(key string) Lock {
		return &redisLock{
			client: client,
			key:    options.prefix + key,
			ttl:    options.ttl,
		}
	}
}

type redisLock struct {
	mu     sync.Mutex
	client redis.UniversalClient
	key    string
	ttl    time.Duration
	token  string
}

func (l *redisLock) TryAcquire(ctx context.Context) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.token != "" {
		return false, ErrAlreadyHeld
	}

	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return false, err
	}
	if ok {
		l.token = token
	}
	return ok, nil
}

func (l *redisLock) Release(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.token == "" {
		return ErrNotHeld
	}

	n, err := releaseScript.Run(ctx, l.client, []string{l.key}, l.token).Int()
	l.token = ""
	if err != nil {
		return err
	}
	if n == 0 {
		// The key expired or was taken over after expiry.
		return errors.Join(ErrNotHeld, errors.New("redis key no longer owned"))
	}
	return nil
}
