package sessionstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"jan-server/services/conversation-api/internal/domain/resolver"
	"jan-server/services/conversation-api/internal/infrastructure/cache"
)

const keyPrefix = "conversation-api:session:"

// RedisStore keeps session values in Redis. Every write refreshes the key TTL.
type RedisStore struct {
	cache *cache.RedisCache
	ttl   time.Duration
}

var _ resolver.SessionStore = (*RedisStore)(nil)

func NewRedisStore(c *cache.RedisCache, ttl time.Duration) *RedisStore {
	return &RedisStore{cache: c, ttl: ttl}
}

func sessionKey(sessionID, key string) string {
	return keyPrefix + sessionID + ":" + key
}

func (s *RedisStore) Get(ctx context.Context, sessionID, key string, dest any) (bool, error) {
	raw, err := s.cache.Get(ctx, sessionKey(sessionID, key))
	if err != nil {
		if errors.Is(err, cache.ErrMiss) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, fmt.Errorf("decode session value %s: %w", key, err)
	}
	return true, nil
}

func (s *RedisStore) Set(ctx context.Context, sessionID, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode session value %s: %w", key, err)
	}
	return s.cache.Set(ctx, sessionKey(sessionID, key), raw, s.ttl)
}

func (s *RedisStore) Has(ctx context.Context, sessionID, key string) (bool, error) {
	return s.cache.Exists(ctx, sessionKey(sessionID, key))
}

func (s *RedisStore) Delete(ctx context.Context, sessionID, key string) error {
	return s.cache.Delete(ctx, sessionKey(sessionID, key))
}
