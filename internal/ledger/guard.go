package ledger

import (
	"context"
	"time"

	"call-ledger/pkg/utils"

	"github.com/redis/go-redis/v9"
)

// RedisGuard enforces the per-user active-call cap on shared Redis state,
// so the cap holds across API replicas. Slots carry a TTL to survive crashes.
type RedisGuard struct {
	rdb   *redis.Client
	limit int
	ttl   time.Duration
}

func NewRedisGuard(rdb *redis.Client, limit int, ttl time.Duration) *RedisGuard {
	return &RedisGuard{rdb: rdb, limit: limit, ttl: ttl}
}

func (g *RedisGuard) Acquire(ctx context.Context, userID string) (bool, error) {
	return utils.AcquireActiveSlot(ctx, g.rdb, g.key(userID), g.limit, g.ttl)
}

func (g *RedisGuard) Release(ctx context.Context, userID string) error {
	return utils.ReleaseActiveSlot(ctx, g.rdb, g.key(userID))
}

func (g *RedisGuard) key(userID string) string {
	return "calls:active:" + userID
}
