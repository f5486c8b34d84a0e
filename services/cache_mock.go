package services

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryCache is an in-process Cache for tests
type MemoryCache struct {
	mu      sync.Mutex
	values  map[string]string
	expires map[string]time.Time
	Hits    int
	Misses  int
}

// NewMemoryCache creates an empty cache
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		values:  make(map[string]string),
		expires: make(map[string]time.Time),
	}
}

func (m *MemoryCache) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.values[key]
	if ok {
		if exp, has := m.expires[key]; has && time.Now().After(exp) {
			delete(m.values, key)
			delete(m.expires, key)
			ok = false
		}
	}
	if !ok {
		m.Misses++
		return "", ErrCacheMiss
	}
	m.Hits++
	return val, nil
}

func (m *MemoryCache) Set(_ context.Context, key string, value interface{}, expiration time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch v := value.(type) {
	case string:
		m.values[key] = v
	case []byte:
		m.values[key] = string(v)
	default:
		m.values[key] = fmt.Sprint(v)
	}
	if expiration > 0 {
		m.expires[key] = time.Now().Add(expiration)
	} else {
		delete(m.expires, key)
	}
	return nil
}

func (m *MemoryCache) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.values, k)
		delete(m.expires, k)
	}
	return nil
}
