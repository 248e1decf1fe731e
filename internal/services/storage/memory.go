package storage

import (
	"bytes"
	"context"
	"sort"
	"strings"
	"sync"
)

type memoryEntry struct {
	value []byte
	seq   uint64
}

// MemoryStore keeps everything in process memory. It is used for tests and
// single-process deployments.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*memoryEntry
	seq     uint64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]*memoryEntry)}
}

func (m *MemoryStore) Create(_ context.Context, key string, value []byte) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.entries[key]; exists {
		return false, nil
	}
	m.seq++
	m.entries[key] = &memoryEntry{value: clone(value), seq: m.seq}
	return true, nil
}

func (m *MemoryStore) Put(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e, exists := m.entries[key]; exists {
		e.value = clone(value)
		return nil
	}
	m.seq++
	m.entries[key] = &memoryEntry{value: clone(value), seq: m.seq}
	return nil
}

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, exists := m.entries[key]
	if !exists {
		return nil, ErrNotFound
	}
	return clone(e.value), nil
}

func (m *MemoryStore) List(_ context.Context, prefix string) ([]Entry, error) {
	m.mu.RLock()
	type seqEntry struct {
		Entry
		seq uint64
	}
	var matched []seqEntry
	for k, e := range m.entries {
		if strings.HasPrefix(k, prefix) {
			matched = append(matched, seqEntry{Entry{Key: k, Value: clone(e.value)}, e.seq})
		}
	}
	m.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool { return matched[i].seq < matched[j].seq })

	out := make([]Entry, len(matched))
	for i := range matched {
		out[i] = matched[i].Entry
	}
	return out, nil
}

func (m *MemoryStore) CompareAndSwap(_ context.Context, key string, old, new []byte) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, exists := m.entries[key]
	if !exists || !bytes.Equal(e.value, old) {
		return false, nil
	}
	e.value = clone(new)
	return true, nil
}

func (m *MemoryStore) Close() error { return nil }

func clone(b []byte) []byte {
	return append([]byte(nil), b...)
}
