// Package lock provides the mutual exclusion used to keep scheduler scans
// from overlapping across instances.
package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrNotAcquired means another holder owns the lock.
var ErrNotAcquired = errors.New("lock is held by another owner")

// Release gives the lock back. Releasing an expired lock is a no-op.
type Release func(ctx context.Context) error

type Locker interface {
	// Acquire returns ErrNotAcquired without blocking when the lock is held.
	Acquire(ctx context.Context, key string, ttl time.Duration) (Release, error)
}

// =============================================================================
// REDIS
// =============================================================================

// Deletes the key only when it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type RedisLocker struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisLocker(client redis.UniversalClient, prefix string) *RedisLocker {
	return &RedisLocker{client: client, prefix: prefix}
}

// Acquire implements Locker using SET NX PX.
func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (Release, error) {
	fullKey := l.prefix + key
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, fullKey, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redis setnx %s: %w", fullKey, err)
	}
	if !ok {
		return nil, ErrNotAcquired
	}

	return func(ctx context.Context) error {
		if err := releaseScript.Run(ctx, l.client, []string{fullKey}, token).Err(); err != nil {
			return fmt.Errorf("redis release %s: %w", fullKey, err)
		}
		return nil
	}, nil
}

// =============================================================================
// IN-PROCESS
// =============================================================================

// LocalLocker is used when no Redis is configured. It only excludes holders
// within the same process.
type LocalLocker struct {
	mu    sync.Mutex
	held  map[string]localHold
	clock func() time.Time
}

type localHold struct {
	token   string
	expires time.Time
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: make(map[string]localHold), clock: time.Now}
}

// Acquire implements Locker.
func (l *LocalLocker) Acquire(_ context.Context, key string, ttl time.Duration) (Release, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	if h, ok := l.held[key]; ok && now.Before(h.expires) {
		return nil, ErrNotAcquired
	}

	token := uuid.NewString()
	l.held[key] = localHold{token: token, expires: now.Add(ttl)}

	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		if h, ok := l.held[key]; ok && h.token == token {
			delete(l.held, key)
		}
		return nil
	}, nil
}
