package usage

import (
	"context"
	"sync"
)

// MemoryStore keeps usage counters in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	counters map[string]map[string]int64
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{counters: make(map[string]map[string]int64)}
}

// Add increments a counter and returns the new total.
func (s *MemoryStore) Add(ctx context.Context, userID, resource string, delta int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	userCounters, ok := s.counters[userID]
	if !ok {
		userCounters = make(map[string]int64)
		s.counters[userID] = userCounters
	}
	userCounters[resource] += delta
	return userCounters[resource], nil
}

// Snapshot returns a copy of every counter for a user.
func (s *MemoryStore) Snapshot(ctx context.Context, userID string) (map[string]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counters := make(map[string]int64, len(s.counters[userID]))
	for resource, amount := range s.counters[userID] {
		counters[resource] = amount
	}
	return counters, nil
}
