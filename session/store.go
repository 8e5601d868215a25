package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned when a slot holds no session.
var ErrNotFound = errors.New("session not found")

// ErrRedisUnavailable wraps Redis transport failures.
var ErrRedisUnavailable = errors.New("redis unavailable")

// ErrCorrupt is returned when a stored blob cannot be decoded.
var ErrCorrupt = errors.New("session corrupt")

// Store persists the session of each slot. Implementations must be safe
// for concurrent use; the engine is the only writer.
type Store interface {
	Save(ctx context.Context, sess *Session, ttl time.Duration) error
	Get(ctx context.Context, slot string) (*Session, error)
	Delete(ctx context.Context, slot string) error
}

// RedisStore keeps sessions as binary blobs under "<prefix>:<slot>" with a
// TTL equal to the remaining token lifetime.
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
}

// NewRedisStore creates a [RedisStore]. An empty prefix defaults to "sas".
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "sas"
	}
	return &RedisStore{
		redis:  client,
		prefix: prefix,
	}
}

func (s *RedisStore) key(slot string) string {
	return s.prefix + ":" + slot
}

// Save writes sess under its slot. A non-positive ttl stores without expiry.
func (s *RedisStore) Save(ctx context.Context, sess *Session, ttl time.Duration) error {
	data, err := Encode(sess)
	if err != nil {
		return err
	}
	if ttl < 0 {
		ttl = 0
	}
	if err := s.redis.Set(ctx, s.key(sess.Slot), data, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Get loads the session for slot.
func (s *RedisStore) Get(ctx context.Context, slot string) (*Session, error) {
	data, err := s.redis.Get(ctx, s.key(slot)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	sess, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return sess, nil
}

// Delete removes the slot's session. Deleting an empty slot is not an error.
func (s *RedisStore) Delete(ctx context.Context, slot string) error {
	if err := s.redis.Del(ctx, s.key(slot)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}
