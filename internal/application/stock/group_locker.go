package stock

import (
	"context"
	"sync"
	"time"

	"github.com/nursery/backend/internal/domain/shared"
	"github.com/nursery/backend/internal/domain/stock"
)

// ErrGroupLocked is returned when the group lock cannot be obtained in time
var ErrGroupLocked = shared.NewDomainError(shared.CodeConflict, "stock group is being allocated by another request")

// ReleaseFunc releases a lock obtained from a GroupLocker
type ReleaseFunc func(ctx context.Context) error

// GroupLocker serializes allocations against the same stock group so the
// free quantity check and the hold insert cannot interleave.
type GroupLocker interface {
	Lock(ctx context.Context, group stock.GroupKey) (ReleaseFunc, error)
}

// GroupLockKey is the lock name of a group
func GroupLockKey(group stock.GroupKey) string {
	return "nursery:alloc:" + group.String()
}

// LocalGroupLocker locks groups within one process. It is used when Redis
// is disabled and in tests.
type LocalGroupLocker struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
	wait  time.Duration
}

// NewLocalGroupLocker creates a LocalGroupLocker that waits at most wait
func NewLocalGroupLocker(wait time.Duration) *LocalGroupLocker {
	return &LocalGroupLocker{slots: make(map[string]chan struct{}), wait: wait}
}

func (l *LocalGroupLocker) slot(key string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	ch, ok := l.slots[key]
	if !ok {
		ch = make(chan struct{}, 1)
		l.slots[key] = ch
	}
	return ch
}

// Lock implements GroupLocker
func (l *LocalGroupLocker) Lock(ctx context.Context, group stock.GroupKey) (ReleaseFunc, error) {
	ch := l.slot(GroupLockKey(group))

	var timeout <-chan time.Time
	if l.wait > 0 {
		timer := time.NewTimer(l.wait)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case ch <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timeout:
		return nil, ErrGroupLocked
	}

	var once sync.Once
	return func(context.Context) error {
		once.Do(func() { <-ch })
		return nil
	}, nil
}

var _ GroupLocker = (*LocalGroupLocker)(nil)
