package lock

import (
	"context"
	"sync"

	"jan-server/services/conversation-api/internal/domain/conversation"
)

type keyedMutex struct {
	mu   sync.Mutex
	refs int
}

// LocalLocker serializes work per thread inside one process. Entries are dropped
// once no goroutine holds or waits for them.
type LocalLocker struct {
	mu    sync.Mutex
	locks map[string]*keyedMutex
}

var _ conversation.ThreadLocker = (*LocalLocker)(nil)

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{locks: map[string]*keyedMutex{}}
}

func (l *LocalLocker) WithThreadLock(ctx context.Context, threadID string, fn func(ctx context.Context) error) error {
	l.mu.Lock()
	km, ok := l.locks[threadID]
	if !ok {
		km = &keyedMutex{}
		l.locks[threadID] = km
	}
	km.refs++
	l.mu.Unlock()

	km.mu.Lock()
	defer func() {
		km.mu.Unlock()
		l.mu.Lock()
		km.refs--
		if km.refs == 0 {
			delete(l.locks, threadID)
		}
		l.mu.Unlock()
	}()

	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(ctx)
}

// Size is the number of threads currently locked or waited on.
func (l *LocalLocker) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
