package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
)

// RunLocker serializes loader runs across processes.
type RunLocker interface {
	Acquire(ctx context.Context, name string) (release func(), err error)
}

const defaultRunLockTTL = 15 * time.Minute

// RedisRunLocker holds a redislock key for the duration of a run.
// The TTL must outlive the run; an expired lock lets a second run in.
type RedisRunLocker struct {
	Client *redislock.Client
	TTL    time.Duration
}

func NewRedisRunLocker(client *redislock.Client) *RedisRunLocker {
	return &RedisRunLocker{Client: client, TTL: defaultRunLockTTL}
}

func (l *RedisRunLocker) Acquire(ctx context.Context, name string) (func(), error) {
	if l.Client == nil {
		return nil, errors.New("redis lock not initialized")
	}
	ttl := l.TTL
	if ttl <= 0 {
		ttl = defaultRunLockTTL
	}
	lock, err := l.Client.Obtain(ctx, fmt.Sprintf("regflow:%s", name), ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, fmt.Errorf("%s: %w", name, ErrRunInProgress)
	}
	if err != nil {
		return nil, fmt.Errorf("obtain %s lock: %w", name, err)
	}
	return func() {
		_ = lock.Release(context.Background())
	}, nil
}
