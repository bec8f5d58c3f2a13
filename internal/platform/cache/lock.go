package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker is a distributed per-key lock for deployments running more
// than one instance. A lock expires after TTL if its holder dies.
type RedisLocker struct {
	cache *Cache
	ttl   time.Duration
	poll  time.Duration
}

// NewRedisLocker creates a locker whose keys live under c.Key("lock", ...).
func NewRedisLocker(c *Cache, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &RedisLocker{
		cache: c,
		ttl:   ttl,
		poll:  25 * time.Millisecond,
	}
}

// Lock blocks until the key is acquired or ctx is done.
func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	full := l.cache.Key("lock", key)
	token := uuid.NewString()

	ticker := time.NewTicker(l.poll)
	defer ticker.Stop()

	for {
		ok, err := l.cache.Client.SetNX(ctx, full, token, l.ttl).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("acquiring lock %s: %w", key, err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}

	return func() {
		// Release with a fresh context so a cancelled request still frees the key.
		rctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = releaseScript.Run(rctx, l.cache.Client, []string{full}, token).Err()
	}, nil
}
