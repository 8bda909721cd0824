// Package testutil provides testing utilities for the cache service.
package testutil

import (
	"context"
	"sync"
	"time"
)

// storedValue is one record inside the fake tier.
type storedValue struct {
	data      []byte
	expiresAt time.Time
}

// MockStore is a configurable in-memory tier store for testing. It
// implements store.TierStore with failure injection and call tracking.
type MockStore struct {
	mu   sync.Mutex
	name string
	data map[string]storedValue

	// Failing makes every operation behave like a transport failure
	// (found=false / ok=false, Healthy reports false).
	Failing bool

	// Tracking
	GetCalls    int
	SetCalls    int
	DeleteCalls int

	// Now overrides the clock for expiry checks.
	Now func() time.Time
}

// NewMockStore creates a fake tier with the given name.
func NewMockStore(name string) *MockStore {
	return &MockStore{
		name: name,
		data: make(map[string]storedValue),
		Now:  time.Now,
	}
}

// Name implements store.TierStore.
func (m *MockStore) Name() string { return m.name }

// Healthy implements store.TierStore.
func (m *MockStore) Healthy() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.Failing
}

// Get implements store.TierStore.
func (m *MockStore) Get(ctx context.Context, key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.GetCalls++
	if m.Failing {
		return nil, false
	}
	v, ok := m.data[key]
	if !ok || m.Now().After(v.expiresAt) {
		delete(m.data, key)
		return nil, false
	}
	return v.data, true
}

// Set implements store.TierStore.
func (m *MockStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.SetCalls++
	if m.Failing || ttl <= 0 {
		return false
	}
	m.data[key] = storedValue{
		data:      append([]byte(nil), value...),
		expiresAt: m.Now().Add(ttl),
	}
	return true
}

// Delete implements store.TierStore.
func (m *MockStore) Delete(ctx context.Context, key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.DeleteCalls++
	if m.Failing {
		return false
	}
	_, ok := m.data[key]
	delete(m.data, key)
	return ok
}

// DeletePattern implements store.TierStore using the same '*'/'?'
// grammar as the cache core.
func (m *MockStore) DeletePattern(ctx context.Context, pattern string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Failing {
		return 0
	}
	count := 0
	for key := range m.data {
		if globMatch(pattern, key) {
			delete(m.data, key)
			count++
		}
	}
	return count
}

// Contains reports whether key is stored and unexpired.
func (m *MockStore) Contains(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok := m.data[key]
	return ok && !m.Now().After(v.expiresAt)
}

// Len returns the number of stored keys.
func (m *MockStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}

// SetFailing toggles failure injection.
func (m *MockStore) SetFailing(failing bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Failing = failing
}

// globMatch mirrors the cache glob grammar ('*' any run, '?' one char).
func globMatch(pattern, name string) bool {
	px, nx := 0, 0
	starPx, starNx := -1, 0
	for nx < len(name) {
		switch {
		case px < len(pattern) && (pattern[px] == '?' || pattern[px] == name[nx]):
			px++
			nx++
		case px < len(pattern) && pattern[px] == '*':
			starPx, starNx = px, nx
			px++
		case starPx >= 0:
			px = starPx + 1
			starNx++
			nx = starNx
		default:
			return false
		}
	}
	for px < len(pattern) && pattern[px] == '*' {
		px++
	}
	return px == len(pattern)
}
