package limiters

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrLoginThrottled is returned by Check once an email reached
	// MaxFailures within Window.
	ErrLoginThrottled = errors.New("too many failed logins")
	// ErrLoginLimiterUnavailable wraps Redis failures.
	ErrLoginLimiterUnavailable = errors.New("login limiter backend unavailable")
)

// LoginConfig holds the failed-login threshold.
type LoginConfig struct {
	MaxFailures int
	// Window starts at the first failure; the counter resets when it ends.
	Window time.Duration
}

// LoginLimiter counts rejected logins per email.
type LoginLimiter interface {
	Check(ctx context.Context, email string) error
	RecordFailure(ctx context.Context, email string) error
	Reset(ctx context.Context, email string) error
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// RedisLoginLimiter is a LoginLimiter shared through Redis.
type RedisLoginLimiter struct {
	redis  redis.UniversalClient
	prefix string
	config LoginConfig
}

// NewRedisLoginLimiter creates a [RedisLoginLimiter]. Counters are stored as
// "<prefix>:llo:<email>".
func NewRedisLoginLimiter(client redis.UniversalClient, prefix string, cfg LoginConfig) *RedisLoginLimiter {
	if prefix == "" {
		prefix = "sas"
	}
	return &RedisLoginLimiter{redis: client, prefix: prefix, config: cfg}
}

func (l *RedisLoginLimiter) key(email string) string {
	return l.prefix + ":llo:" + normalizeEmail(email)
}

func (l *RedisLoginLimiter) enabled(email string) bool {
	return l != nil && l.config.MaxFailures > 0 && normalizeEmail(email) != ""
}

// Check implements LoginLimiter.
func (l *RedisLoginLimiter) Check(ctx context.Context, email string) error {
	if !l.enabled(email) {
		return nil
	}
	count, err := l.redis.Get(ctx, l.key(email)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrLoginLimiterUnavailable, err)
	}
	if count >= int64(l.config.MaxFailures) {
		return ErrLoginThrottled
	}
	return nil
}

// RecordFailure implements LoginLimiter.
func (l *RedisLoginLimiter) RecordFailure(ctx context.Context, email string) error {
	if !l.enabled(email) {
		return nil
	}
	key := l.key(email)
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLoginLimiterUnavailable, err)
	}
	if count == 1 && l.config.Window > 0 {
		if err := l.redis.Expire(ctx, key, l.config.Window).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrLoginLimiterUnavailable, err)
		}
	}
	return nil
}

// Reset implements LoginLimiter.
func (l *RedisLoginLimiter) Reset(ctx context.Context, email string) error {
	if !l.enabled(email) {
		return nil
	}
	if err := l.redis.Del(ctx, l.key(email)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrLoginLimiterUnavailable, err)
	}
	return nil
}

// MemoryLoginLimiter is a process-local LoginLimiter.
type MemoryLoginLimiter struct {
	config LoginConfig
	now    func() time.Time

	mu      sync.Mutex
	entries map[string]loginEntry
}

type loginEntry struct {
	count   int
	expires time.Time
}

// NewMemoryLoginLimiter creates a [MemoryLoginLimiter].
func NewMemoryLoginLimiter(cfg LoginConfig) *MemoryLoginLimiter {
	return &MemoryLoginLimiter{config: cfg, now: time.Now, entries: make(map[string]loginEntry)}
}

func (l *MemoryLoginLimiter) enabled(email string) bool {
	return l != nil && l.config.MaxFailures > 0 && normalizeEmail(email) != ""
}

// entry returns the live counter of key. Callers hold l.mu.
func (l *MemoryLoginLimiter) entry(key string) loginEntry {
	e, ok := l.entries[key]
	if ok && !e.expires.IsZero() && !l.now().Before(e.expires) {
		delete(l.entries, key)
		return loginEntry{}
	}
	return e
}

// Check implements LoginLimiter.
func (l *MemoryLoginLimiter) Check(_ context.Context, email string) error {
	if !l.enabled(email) {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.entry(normalizeEmail(email)).count >= l.config.MaxFailures {
		return ErrLoginThrottled
	}
	return nil
}

// RecordFailure implements LoginLimiter.
func (l *MemoryLoginLimiter) RecordFailure(_ context.Context, email string) error {
	if !l.enabled(email) {
		return nil
	}
	key := normalizeEmail(email)
	l.mu.Lock()
	defer l.mu.Unlock()
	e := l.entry(key)
	e.count++
	if e.count == 1 && l.config.Window > 0 {
		e.expires = l.now().Add(l.config.Window)
	}
	l.entries[key] = e
	return nil
}

// Reset implements LoginLimiter.
func (l *MemoryLoginLimiter) Reset(_ context.Context, email string) error {
	if !l.enabled(email) {
		return nil
	}
	l.mu.Lock()
	delete(l.entries, normalizeEmail(email))
	l.mu.Unlock()
	return nil
}
