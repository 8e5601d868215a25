package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps sessions in process memory. It is the default store
// when no Redis client is configured.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]memoryEntry
	now   func() time.Time
}

type memoryEntry struct {
	sess      *Session
	expiresAt time.Time
}

// NewMemoryStore creates an empty [MemoryStore].
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items: make(map[string]memoryEntry),
		now:   time.Now,
	}
}

// Save stores a copy of sess. A non-positive ttl stores without expiry.
func (s *MemoryStore) Save(_ context.Context, sess *Session, ttl time.Duration) error {
	entry := memoryEntry{sess: sess.Clone()}
	if ttl > 0 {
		entry.expiresAt = s.now().Add(ttl)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[sess.Slot] = entry
	return nil
}

// Get returns a copy of the slot's session.
func (s *MemoryStore) Get(_ context.Context, slot string) (*Session, error) {
	s.mu.RLock()
	entry, ok := s.items[slot]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	if !entry.expiresAt.IsZero() && !s.now().Before(entry.expiresAt) {
		s.mu.Lock()
		delete(s.items, slot)
		s.mu.Unlock()
		return nil, ErrNotFound
	}
	return entry.sess.Clone(), nil
}

// Delete removes the slot's session.
func (s *MemoryStore) Delete(_ context.Context, slot string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, slot)
	return nil
}

// Len reports the number of stored slots, expired entries included.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}
