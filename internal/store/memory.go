package store

import (
	"context"
	"sort"
	"sync"
)

// Memory is an in-process Store for tests and previews.
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte
	// FailApply, when set, is returned by Apply without applying anything.
	FailApply error
}

func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (m *Memory) List(_ context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := listFrom(m.data, prefix)
	sort.Strings(keys)
	return keys, nil
}

func (m *Memory) Apply(_ context.Context, ops ...Op) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailApply != nil {
		return m.FailApply
	}
	applyTo(m.data, ops)
	return nil
}

// Set writes a raw value, bypassing Apply. Tests use it to plant corrupt state.
func (m *Memory) Set(key string, value []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
}
