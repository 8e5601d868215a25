package inflight

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestMemoryGuardSingleHolder(t *testing.T) {
	g := NewMemory()
	ctx := context.Background()
	key := Key("slot", "login")

	release, err := g.Acquire(ctx, key)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if _, err := g.Acquire(ctx, key); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
	if _, err := g.Acquire(ctx, Key("slot", "logout")); err != nil {
		t.Fatalf("other action should be free: %v", err)
	}

	release()
	release()
	if g.Held(key) {
		t.Fatal("expected key released")
	}
	if _, err := g.Acquire(ctx, key); err != nil {
		t.Fatalf("reacquire: %v", err)
	}
}

func TestMemoryGuardConcurrentAcquire(t *testing.T) {
	g := NewMemory()
	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := g.Acquire(context.Background(), "k"); err == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	if wins.Load() != 1 {
		t.Fatalf("expected exactly one winner, got %d", wins.Load())
	}
}

func newRedisGuard(t *testing.T, lease time.Duration) (*RedisGuard, *miniredis.Miniredis) {
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
	return NewRedisGuard(rdb, "test", lease), mr
}

func TestRedisGuardSharedAcrossInstances(t *testing.T) {
	g, mr := newRedisGuard(t, time.Minute)
	other := NewRedisGuard(g.redis, "test", time.Minute)
	ctx := context.Background()

	release, err := g.Acquire(ctx, "s:login")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if !mr.Exists("test:if:s:login") {
		t.Fatal("expected lease key in redis")
	}
	if _, err := other.Acquire(ctx, "s:login"); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy from second instance, got %v", err)
	}

	release()
	if mr.Exists("test:if:s:login") {
		t.Fatal("expected lease key deleted on release")
	}
	if _, err := other.Acquire(ctx, "s:login"); err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
}

func TestRedisGuardLeaseExpiry(t *testing.T) {
	g, mr := newRedisGuard(t, time.Second)
	ctx := context.Background()

	staleRelease, err := g.Acquire(ctx, "k")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	mr.FastForward(2 * time.Second)

	release, err := g.Acquire(ctx, "k")
	if err != nil {
		t.Fatalf("acquire after lease expiry: %v", err)
	}
	defer release()

	// A stale holder must not delete the new holder's lease.
	staleRelease()
	if !mr.Exists("test:if:k") {
		t.Fatal("stale release removed the current lease")
	}
}

func TestRedisGuardUnavailable(t *testing.T) {
	g, mr := newRedisGuard(t, time.Second)
	mr.Close()
	if _, err := g.Acquire(context.Background(), "k"); !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("expected ErrRedisUnavailable, got %v", err)
	}
}
