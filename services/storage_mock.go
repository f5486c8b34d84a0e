package services

import (
	"context"
	"fmt"
	"sync"
)

// MockStorage keeps objects in memory for tests
type MockStorage struct {
	objects map[string][]byte
	mu      sync.RWMutex
	// PutErr, when set, is returned by every Put
	PutErr error
}

// NewMockStorage creates an empty in-memory storage
func NewMockStorage() *MockStorage {
	return &MockStorage{objects: make(map[string][]byte)}
}

func (m *MockStorage) Put(_ context.Context, key, _ string, body []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PutErr != nil {
		return m.PutErr
	}
	m.objects[key] = append([]byte(nil), body...)
	return nil
}

func (m *MockStorage) PresignedURL(_ context.Context, key string) (string, error) {
	if key == "" {
		return "", nil
	}
	m.mu.RLock()
	_, exists := m.objects[key]
	m.mu.RUnlock()
	if !exists {
		return "", fmt.Errorf("object not found in mock storage: %s", key)
	}
	return fmt.Sprintf("https://test-bucket.s3.us-east-1.amazonaws.com/%s?mock=true", key), nil
}

func (m *MockStorage) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.objects, key)
	m.mu.Unlock()
	return nil
}

// Keys returns the stored keys
func (m *MockStorage) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		keys = append(keys, k)
	}
	return keys
}

// Object returns a stored object's bytes
func (m *MockStorage) Object(key string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.objects[key]
	return b, ok
}
