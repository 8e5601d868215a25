package limiters

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisLimiter(t *testing.T, cfg LoginConfig) (*RedisLoginLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})
	return NewRedisLoginLimiter(rdb, "test", cfg), mr
}

func exerciseThreshold(t *testing.T, l LoginLimiter) {
	t.Helper()
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := l.Check(ctx, "Staff@Example.com"); err != nil {
			t.Fatalf("check %d: %v", i, err)
		}
		if err := l.RecordFailure(ctx, "staff@example.com "); err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
	}
	if err := l.Check(ctx, "staff@example.com"); !errors.Is(err, ErrLoginThrottled) {
		t.Fatalf("expected ErrLoginThrottled, got %v", err)
	}
	if err := l.Check(ctx, "other@example.com"); err != nil {
		t.Fatalf("other email should not be throttled: %v", err)
	}

	if err := l.Reset(ctx, "STAFF@example.com"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if err := l.Check(ctx, "staff@example.com"); err != nil {
		t.Fatalf("expected reset to clear throttle, got %v", err)
	}
}

func TestRedisLoginLimiterThreshold(t *testing.T) {
	l, _ := newRedisLimiter(t, LoginConfig{MaxFailures: 2, Window: time.Minute})
	exerciseThreshold(t, l)
}

func TestMemoryLoginLimiterThreshold(t *testing.T) {
	exerciseThreshold(t, NewMemoryLoginLimiter(LoginConfig{MaxFailures: 2, Window: time.Minute}))
}

func TestRedisLoginLimiterWindowExpiry(t *testing.T) {
	l, mr := newRedisLimiter(t, LoginConfig{MaxFailures: 1, Window: time.Minute})
	ctx := context.Background()

	if err := l.RecordFailure(ctx, "a@example.com"); err != nil {
		t.Fatalf("record: %v", err)
	}
	if !mr.Exists("test:llo:a@example.com") {
		t.Fatal("expected counter key")
	}
	if err := l.Check(ctx, "a@example.com"); !errors.Is(err, ErrLoginThrottled) {
		t.Fatalf("expected throttled, got %v", err)
	}

	mr.FastForward(2 * time.Minute)
	if err := l.Check(ctx, "a@example.com"); err != nil {
		t.Fatalf("expected window to expire, got %v", err)
	}
}

func TestMemoryLoginLimiterWindowExpiry(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	l := NewMemoryLoginLimiter(LoginConfig{MaxFailures: 1, Window: time.Minute})
	l.now = func() time.Time { return now }
	ctx := context.Background()

	_ = l.RecordFailure(ctx, "a@example.com")
	if err := l.Check(ctx, "a@example.com"); !errors.Is(err, ErrLoginThrottled) {
		t.Fatalf("expected throttled, got %v", err)
	}
	now = now.Add(time.Minute)
	if err := l.Check(ctx, "a@example.com"); err != nil {
		t.Fatalf("expected window to expire, got %v", err)
	}
}

func TestRedisLoginLimiterUnavailable(t *testing.T) {
	l, mr := newRedisLimiter(t, LoginConfig{MaxFailures: 1, Window: time.Minute})
	mr.Close()

	if err := l.Check(context.Background(), "a@example.com"); !errors.Is(err, ErrLoginLimiterUnavailable) {
		t.Fatalf("expected ErrLoginLimiterUnavailable, got %v", err)
	}
	if err := l.RecordFailure(context.Background(), "a@example.com"); !errors.Is(err, ErrLoginLimiterUnavailable) {
		t.Fatalf("expected ErrLoginLimiterUnavailable, got %v", err)
	}
}

func TestDisabledLimiters(t *testing.T) {
	var nilRedis *RedisLoginLimiter
	var nilMemory *MemoryLoginLimiter
	off := NewMemoryLoginLimiter(LoginConfig{})
	ctx := context.Background()

	for _, l := range []LoginLimiter{nilRedis, nilMemory, off} {
		for i := 0; i < 5; i++ {
			if err := l.RecordFailure(ctx, "a@example.com"); err != nil {
				t.Fatalf("record: %v", err)
			}
		}
		if err := l.Check(ctx, "a@example.com"); err != nil {
			t.Fatalf("disabled limiter throttled: %v", err)
		}
	}
}
