package lock

import (
	"context"
	"time"

	"jan-server/services/conversation-api/internal/domain/conversation"
	"jan-server/services/conversation-api/internal/infrastructure/cache"
	"jan-server/services/conversation-api/internal/utils/platformerrors"
)

const DefaultThreadLockTTL = 10 * time.Second

// RedisLocker serializes appends to a thread across service instances.
type RedisLocker struct {
	cache *cache.RedisCache
	ttl   time.Duration
}

var _ conversation.ThreadLocker = (*RedisLocker)(nil)

func NewRedisLocker(c *cache.RedisCache, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = DefaultThreadLockTTL
	}
	return &RedisLocker{cache: c, ttl: ttl}
}

func (l *RedisLocker) WithThreadLock(ctx context.Context, threadID string, fn func(ctx context.Context) error) error {
	var fnErr error
	err := l.cache.WithLock(ctx, "thread-lock:"+threadID, l.ttl, func() error {
		fnErr = fn(ctx)
		return nil
	})
	if err != nil {
		return platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeInternal, "failed to lock thread", err, "c9f1e3a7-0b54-4d26-8e9d-6a2b7c4f0e13")
	}
	return fnErr
}
