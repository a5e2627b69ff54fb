package store

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is the volatile room table. It is the default store.
type MemoryStore struct {
	mu    sync.RWMutex
	rooms map[string]Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rooms: make(map[string]Record)}
}

func (m *MemoryStore) Get(_ context.Context, code string) (Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.rooms[code]
	if !ok {
		return Record{}, ErrNotFound
	}
	rec.State = rec.State.Clone()
	return rec, nil
}

func (m *MemoryStore) Put(_ context.Context, rec Record) error {
	rec.State = rec.State.Clone()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.rooms[rec.Code] = rec
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rooms, code)
	return nil
}

func (m *MemoryStore) ListExpired(_ context.Context, cutoff time.Time) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var codes []string
	for code, rec := range m.rooms {
		if rec.Phase.Sweepable() && rec.UpdatedAt.Before(cutoff) {
			codes = append(codes, code)
		}
	}
	return codes, nil
}

func (m *MemoryStore) Close() error { return nil }

// Len is the number of stored rooms.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rooms)
}
