package inflight

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrBusy is returned when the key is already held.
	ErrBusy = errors.New("request in flight")
	// ErrRedisUnavailable wraps Redis failures of RedisGuard.
	ErrRedisUnavailable = errors.New("redis unavailable")
)

// Guard hands out exclusive holds on keys.
type Guard interface {
	// Acquire takes key or fails with ErrBusy. The returned release is
	// idempotent.
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// Key joins a slot and an action name.
func Key(slot, action string) string {
	return slot + ":" + action
}

// Memory is a process-local Guard.
type Memory struct {
	mu   sync.Mutex
	held map[string]struct{}
}

// NewMemory returns an empty [Memory] guard.
func NewMemory() *Memory {
	return &Memory{held: make(map[string]struct{})}
}

// Acquire implements Guard.
func (m *Memory) Acquire(_ context.Context, key string) (func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.held[key]; ok {
		return nil, ErrBusy
	}
	m.held[key] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.held, key)
			m.mu.Unlock()
		})
	}, nil
}

// Held reports whether key is currently held.
func (m *Memory) Held(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.held[key]
	return ok
}
