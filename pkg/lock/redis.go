package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only while it still carries our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker implements Locker with SET NX PX so several API instances can
// share the same resource locks.
type RedisLocker struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
	wait   time.Duration
	retry  time.Duration
}

// NewRedisLocker builds a RedisLocker. ttl caps how long a crashed holder can
// keep a key; wait bounds how long Acquire blocks.
func NewRedisLocker(client redis.UniversalClient, ttl, wait time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	if wait <= 0 {
		wait = 5 * time.Second
	}
	return &RedisLocker{client: client, prefix: "lock:", ttl: ttl, wait: wait, retry: 25 * time.Millisecond}
}

// Acquire takes every key in sorted order, backing off until the wait
// timeout elapses.
func (l *RedisLocker) Acquire(ctx context.Context, keys ...string) (Release, error) {
	keys = Normalize(keys)
	token := uuid.NewString()
	ctx, cancel := context.WithTimeout(ctx, l.wait)
	defer cancel()

	held := make([]string, 0, len(keys))
	for _, key := range keys {
		if err := l.acquireOne(ctx, l.prefix+key, token); err != nil {
			l.release(held, token)
			return nil, err
		}
		held = append(held, l.prefix+key)
	}
	return once(func() { l.release(held, token) }), nil
}

func (l *RedisLocker) acquireOne(ctx context.Context, key, token string) error {
	ticker := time.NewTicker(l.retry)
	defer ticker.Stop()
	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return ErrTimeout
			}
			return fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return ErrTimeout
		case <-ticker.C:
		}
	}
}

func (l *RedisLocker) release(keys []string, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for i := len(keys) - 1; i >= 0; i-- {
		_ = releaseScript.Run(ctx, l.client, []string{keys[i]}, token).Err()
	}
}
