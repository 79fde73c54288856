package cache

import (
	"container/list"
	"context"
	"sync"
)

// DefaultMemoryEntries is the capacity of a Memory cache created with n <= 0.
const DefaultMemoryEntries = 64

type memoryEntry struct {
	key  string
	data []byte
}

// Memory is an in-process LRU module cache.
type Memory struct {
	entries map[string]*list.Element
	order   *list.List
	mu      sync.Mutex
	limit   int
}

var _ ModuleCache = (*Memory)(nil)

// NewMemory creates a cache holding at most n modules.
func NewMemory(n int) *Memory {
	if n <= 0 {
		n = DefaultMemoryEntries
	}
	return &Memory{
		entries: make(map[string]*list.Element),
		order:   list.New(),
		limit:   n,
	}
}

// Lookup implements ModuleCache.
func (m *Memory) Lookup(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	el, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	m.order.MoveToFront(el)
	return el.Value.(*memoryEntry).data, true, nil
}

// Save implements ModuleCache. The least recently used entry is evicted when
// the cache is full.
func (m *Memory) Save(_ context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if el, ok := m.entries[key]; ok {
		el.Value.(*memoryEntry).data = data
		m.order.MoveToFront(el)
		return nil
	}

	m.entries[key] = m.order.PushFront(&memoryEntry{key: key, data: data})
	for m.order.Len() > m.limit {
		oldest := m.order.Back()
		m.order.Remove(oldest)
		delete(m.entries, oldest.Value.(*memoryEntry).key)
	}
	return nil
}

// Len returns the number of cached modules.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.order.Len()
}
