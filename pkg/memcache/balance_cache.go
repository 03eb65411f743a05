// pkg/memcache/balance_cache.go
package mem

import (
	"sync"
	"time"
)

// Store is a best-effort TTL cache. Implementations never surface errors:
// a failed lookup is just a miss, and callers must treat every read as
// advisory and fall back to the authoritative store.
type Store interface {
	Get(key string) (any, bool)

	// Set stores value under key until ttl elapses. A ttl <= 0 stores nothing.
	Set(key string, value any, ttl time.Duration)

	Del(key string)
}

type entry struct {
	value     any
	expiresAt time.Time
}

type Memcache struct {
	mu   sync.RWMutex
	data map[string]entry
}

func NewMemcache() *Memcache {
	return &Memcache{
		data: make(map[string]entry),
	}
}

func (s *Memcache) Get(key string) (any, bool) {
	s.mu.RLock()
	e, ok := s.data[key]
	s.mu.RUnlock()

	if !ok {
		return nil, false
	}
	if time.Now().After(e.expiresAt) {
		s.Del(key) // cleanup expired
		return nil, false
	}
	return e.value, true
}

func (s *Memcache) Set(key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = entry{
		value:     value,
		expiresAt: time.Now().Add(ttl),
	}
}

func (s *Memcache) Del(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
}
