package lock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalLocker_SerializesPerThread(t *testing.T) {
	locker := NewLocalLocker()
	ctx := context.Background()

	var active, maxActive int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := locker.WithThreadLock(ctx, "thread_1", func(context.Context) error {
				n := atomic.AddInt32(&active, 1)
				for {
					m := atomic.LoadInt32(&maxActive)
					if n <= m || atomic.CompareAndSwapInt32(&maxActive, m, n) {
						break
					}
				}
				atomic.AddInt32(&active, -1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, maxActive)
	assert.Zero(t, locker.Size())
}

func TestLocalLocker_IndependentThreads(t *testing.T) {
	locker := NewLocalLocker()
	ctx := context.Background()

	err := locker.WithThreadLock(ctx, "thread_1", func(ctx context.Context) error {
		return locker.WithThreadLock(ctx, "thread_2", func(context.Context) error {
			assert.Equal(t, 2, locker.Size())
			return nil
		})
	})
	require.NoError(t, err)
	assert.Zero(t, locker.Size())
}

func TestLocalLocker_CanceledContext(t *testing.T) {
	locker := NewLocalLocker()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := locker.WithThreadLock(ctx, "thread_1", func(context.Context) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
	assert.Zero(t, locker.Size())
}
