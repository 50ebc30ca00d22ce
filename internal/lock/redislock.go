// Package lock provides a Redis-backed mutual exclusion primitive. The
// settlement service holds one lock per account date so two close requests
// for the same day never interleave.
package lock

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrNotAcquired is returned by TryLock when the key is already held.
var ErrNotAcquired = errors.New("lock: not acquired")

// Locker issues Redis locks keyed by caller-chosen strings.
type Locker struct {
	R            *redis.Client
	RetryBackoff time.Duration
}

// TryLock attempts a single acquisition and returns a release func on
// success. The release is safe against expiry: it only deletes the key when
// the stored token still matches.
func (l Locker) TryLock(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	if l.R == nil {
		return nil, errors.New("lock: redis client not configured")
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	token := uuid.NewString()
	ok, err := l.R.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotAcquired
	}
	release := func() {
		const script = `if redis.call("get", KEYS[1]) == ARGV[1] then
  return redis.call("del", KEYS[1])
else
  return 0
end`
		_ = l.R.Eval(context.Background(), script, []string{key}, token).Err()
	}
	return release, nil
}

// WithLock blocks until the lock is acquired or ctx expires, runs fn, then
// releases. fn errors pass through unchanged.
func (l Locker) WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error {
	if fn == nil {
		return errors.New("lock: callback not provided")
	}
	retry := l.RetryBackoff
	if retry <= 0 {
		retry = 50 * time.Millisecond
	}
	for {
		release, err := l.TryLock(ctx, key, ttl)
		if err == nil {
			defer release()
			return fn(ctx)
		}
		if !errors.Is(err, ErrNotAcquired) {
			return err
		}
		timer := time.NewTimer(retry)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
