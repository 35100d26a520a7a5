package kv

import (
	"context"
	"sort"
	"strings"
	"sync"

	"ledger-wallet/internal/core/ports"
)

// MemoryAdapter is a map-backed StorageAdapter. Nothing survives Close.
type MemoryAdapter struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{data: make(map[string][]byte)}
}

func (m *MemoryAdapter) ID() string { return "memory" }

func (m *MemoryAdapter) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), v...), nil
}

func (m *MemoryAdapter) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *MemoryAdapter) BatchSet(_ context.Context, entries []ports.BatchEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range entries {
		if e.Delete {
			delete(m.data, e.Key)
			continue
		}
		m.data[e.Key] = append([]byte(nil), e.Value...)
	}
	return nil
}

func (m *MemoryAdapter) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *MemoryAdapter) Scan(ctx context.Context, prefix string, fn func(key string, value []byte) error) error {
	m.mu.RLock()
	var pairs []pair
	for k, v := range m.data {
		if strings.HasPrefix(k, prefix) {
			pairs = append(pairs, pair{key: k, value: append([]byte(nil), v...)})
		}
	}
	m.mu.RUnlock()

	sort.Slice(pairs, func(i, j int) bool { return pairs[i].key < pairs[j].key })
	return visit(ctx, pairs, fn)
}

func (m *MemoryAdapter) Close() error { return nil }

type pair struct {
	key   string
	value []byte
}

// visit calls fn outside any backend transaction so fn may use the adapter.
func visit(ctx context.Context, pairs []pair, fn func(key string, value []byte) error) error {
	for _, p := range pairs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(p.key, p.value); err != nil {
			return err
		}
	}
	return nil
}
