package cache

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	value   string
	expires time.Time
}

func (e entry) live(now time.Time) bool {
	return e.expires.IsZero() || now.Before(e.expires)
}

// ttlMap is a mutex guarded map whose entries expire after ttl (never when ttl <= 0).
type ttlMap struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]entry
	now     func() time.Time
}

func newTTLMap(ttl time.Duration) *ttlMap {
	return &ttlMap{ttl: ttl, entries: make(map[string]entry), now: time.Now}
}

func (m *ttlMap) expiry() time.Time {
	if m.ttl <= 0 {
		return time.Time{}
	}
	return m.now().Add(m.ttl)
}

func (m *ttlMap) setNX(key, value string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[key]; ok && e.live(m.now()) {
		return false
	}
	m.entries[key] = entry{value: value, expires: m.expiry()}
	return true
}

func (m *ttlMap) set(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = entry{value: value, expires: m.expiry()}
}

func (m *ttlMap) get(key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		return "", false
	}
	if !e.live(m.now()) {
		delete(m.entries, key)
		return "", false
	}
	return e.value, true
}

func (m *ttlMap) del(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
}

// MemoryIdempotencyStore is the single-process IdempotencyStore used when no Redis is configured.
type MemoryIdempotencyStore struct {
	locks  *ttlMap
	values *ttlMap
}

func NewMemoryIdempotencyStore(ttl time.Duration) *MemoryIdempotencyStore {
	return &MemoryIdempotencyStore{locks: newTTLMap(ttl), values: newTTLMap(ttl)}
}

func (s *MemoryIdempotencyStore) TryLock(_ context.Context, scope, key string) (bool, error) {
	return s.locks.setNX(scope+":"+key, "1"), nil
}

func (s *MemoryIdempotencyStore) Release(_ context.Context, scope, key string) error {
	s.locks.del(scope + ":" + key)
	return nil
}

func (s *MemoryIdempotencyStore) Remember(_ context.Context, scope, key, value string) error {
	s.values.set(scope+":"+key, value)
	return nil
}

func (s *MemoryIdempotencyStore) Recall(_ context.Context, scope, key string) (string, bool, error) {
	v, ok := s.values.get(scope + ":" + key)
	return v, ok, nil
}

// MemoryStatusCache is the single-process status cache.
type MemoryStatusCache struct {
	statuses *ttlMap
}

func NewMemoryStatusCache(ttl time.Duration) *MemoryStatusCache {
	return &MemoryStatusCache{statuses: newTTLMap(ttl)}
}

func (c *MemoryStatusCache) SetStatus(_ context.Context, orderID, status string) error {
	c.statuses.set(orderID, status)
	return nil
}

func (c *MemoryStatusCache) GetStatus(_ context.Context, orderID string) (string, bool, error) {
	v, ok := c.statuses.get(orderID)
	return v, ok, nil
}

func (c *MemoryStatusCache) DeleteStatus(_ context.Context, orderID string) error {
	c.statuses.del(orderID)
	return nil
}
