package sessionstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"jan-server/services/conversation-api/internal/domain/resolver"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryStore is the single-instance SessionStore used when no Redis is configured.
// Values are JSON encoded so both stores behave the same for callers. Expired
// entries are dropped when read and swept by Set at most once per ttl.
type MemoryStore struct {
	mu        sync.RWMutex
	entries   map[string]memoryEntry
	ttl       time.Duration
	now       func() time.Time
	lastSweep time.Time
}

var _ resolver.SessionStore = (*MemoryStore)(nil)

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		entries: map[string]memoryEntry{},
		ttl:     ttl,
		now:     time.Now,
	}
}

func (s *MemoryStore) lookup(sessionID, key string) ([]byte, bool) {
	s.mu.RLock()
	entry, ok := s.entries[sessionKey(sessionID, key)]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if now := s.now(); entry.expired(now) {
		s.mu.Lock()
		// Set may have replaced the entry since the read lock was released.
		if current, ok := s.entries[sessionKey(sessionID, key)]; ok && current.expired(now) {
			delete(s.entries, sessionKey(sessionID, key))
		}
		s.mu.Unlock()
		return nil, false
	}
	return entry.value, true
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// sweepLocked drops every expired entry. The caller holds mu.
func (s *MemoryStore) sweepLocked(now time.Time) {
	if s.ttl <= 0 || now.Sub(s.lastSweep) < s.ttl {
		return
	}
	s.lastSweep = now
	for k, entry := range s.entries {
		if entry.expired(now) {
			delete(s.entries, k)
		}
	}
}

func (s *MemoryStore) Get(_ context.Context, sessionID, key string, dest any) (bool, error) {
	raw, ok := s.lookup(sessionID, key)
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, fmt.Errorf("decode session value %s: %w", key, err)
	}
	return true, nil
}

func (s *MemoryStore) Set(_ context.Context, sessionID, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode session value %s: %w", key, err)
	}
	now := s.now()
	entry := memoryEntry{value: raw}
	if s.ttl > 0 {
		entry.expiresAt = now.Add(s.ttl)
	}
	s.mu.Lock()
	s.sweepLocked(now)
	s.entries[sessionKey(sessionID, key)] = entry
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Has(_ context.Context, sessionID, key string) (bool, error) {
	_, ok := s.lookup(sessionID, key)
	return ok, nil
}

func (s *MemoryStore) Delete(_ context.Context, sessionID, key string) error {
	s.mu.Lock()
	delete(s.entries, sessionKey(sessionID, key))
	s.mu.Unlock()
	return nil
}
