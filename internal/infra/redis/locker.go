package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock only if it still carries our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// ErrLockTimeout is returned when a lock could not be acquired before ctx ended.
var ErrLockTimeout = errors.New("timed out waiting for lock")

// Locker is a Redis implementation of app.Locker shared by every instance
// pointing at the same Redis. Locks expire after ttl so a crashed holder
// cannot wedge the collection.
type Locker struct {
	client *redis.Client
	ttl    time.Duration
	retry  time.Duration
}

func NewLocker(client *redis.Client, ttl time.Duration) *Locker {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &Locker{client: client, ttl: ttl, retry: 25 * time.Millisecond}
}

func (l *Locker) Lock(ctx context.Context, key string) (func(), error) {
	token := uuid.NewString()
	lockKey := l.key(key)

	for {
		ok, err := l.client.SetNX(ctx, lockKey, token, l.ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%w: %s", ErrLockTimeout, key)
			}
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s", ErrLockTimeout, key)
		case <-time.After(l.retry):
		}
	}

	return func() {
		// best-effort release; the TTL cleans up otherwise
		_ = releaseScript.Run(context.Background(), l.client, []string{lockKey}, token).Err()
	}, nil
}

func (l *Locker) key(name string) string {
	return "quiz:lock:" + name
}
