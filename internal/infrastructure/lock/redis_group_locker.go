package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	appstock "github.com/nursery/backend/internal/application/stock"
	"github.com/nursery/backend/internal/domain/stock"
	"go.uber.org/zap"
)

const retryInterval = 50 * time.Millisecond

// RedisGroupLocker serializes allocations on a stock group across every
// process sharing the Redis instance.
type RedisGroupLocker struct {
	client *redislock.Client
	ttl    time.Duration
	wait   time.Duration
	logger *zap.Logger
}

// NewRedisGroupLocker creates a locker. ttl bounds how long a crashed holder
// can block a group; wait bounds how long Lock retries.
func NewRedisGroupLocker(client redislock.RedisClient, ttl, wait time.Duration, logger *zap.Logger) *RedisGroupLocker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisGroupLocker{
		client: redislock.New(client),
		ttl:    ttl,
		wait:   wait,
		logger: logger,
	}
}

// Lock implements appstock.GroupLocker
func (l *RedisGroupLocker) Lock(ctx context.Context, group stock.GroupKey) (appstock.ReleaseFunc, error) {
	key := appstock.GroupLockKey(group)

	obtainCtx := ctx
	if l.wait > 0 {
		var cancel context.CancelFunc
		obtainCtx, cancel = context.WithTimeout(ctx, l.wait)
		defer cancel()
	}

	lock, err := l.client.Obtain(obtainCtx, key, l.ttl, &redislock.Options{
		RetryStrategy: redislock.LinearBackoff(retryInterval),
	})
	switch {
	case err == nil:
	case ctx.Err() != nil:
		return nil, ctx.Err()
	case errors.Is(err, redislock.ErrNotObtained), errors.Is(err, context.DeadlineExceeded):
		l.logger.Debug("Group lock busy", zap.String("key", key), zap.Duration("waited", l.wait))
		return nil, appstock.ErrGroupLocked
	default:
		return nil, fmt.Errorf("failed to obtain group lock %s: %w", key, err)
	}

	return func(ctx context.Context) error {
		err := lock.Release(ctx)
		if errors.Is(err, redislock.ErrLockNotHeld) {
			l.logger.Warn("Group lock expired before release", zap.String("key", key), zap.Duration("ttl", l.ttl))
			return nil
		}
		return err
	}, nil
}

var _ appstock.GroupLocker = (*RedisGroupLocker)(nil)
