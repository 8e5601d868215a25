package inflight

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultLease bounds how long a crashed holder can block a key.
const DefaultLease = 30 * time.Second

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisGuard is a Guard shared through Redis.
type RedisGuard struct {
	redis  redis.UniversalClient
	prefix string
	lease  time.Duration
}

// NewRedisGuard creates a [RedisGuard]. Keys are stored as
// "<prefix>:if:<key>" and expire after lease.
func NewRedisGuard(client redis.UniversalClient, prefix string, lease time.Duration) *RedisGuard {
	if prefix == "" {
		prefix = "sas"
	}
	if lease <= 0 {
		lease = DefaultLease
	}
	return &RedisGuard{redis: client, prefix: prefix, lease: lease}
}

func (g *RedisGuard) key(k string) string {
	return g.prefix + ":if:" + k
}

// Acquire implements Guard.
func (g *RedisGuard) Acquire(ctx context.Context, key string) (func(), error) {
	token := uuid.NewString()
	redisKey := g.key(key)

	ok, err := g.redis.SetNX(ctx, redisKey, token, g.lease).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if !ok {
		return nil, ErrBusy
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// The caller's context may already be cancelled.
			_ = releaseScript.Run(context.WithoutCancel(ctx), g.redis, []string{redisKey}, token).Err()
		})
	}, nil
}
