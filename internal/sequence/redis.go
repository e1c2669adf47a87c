package sequence

import (
    "context"

    "github.com/redis/go-redis/v9"
)

// Redis keeps counters as Redis integers advanced with INCR.
type Redis struct {
    rdb    *redis.Client
    prefix string
}

// NewRedis returns a generator storing counters under "seq:".
func NewRedis(rdb *redis.Client) *Redis { return &Redis{rdb: rdb, prefix: "seq:"} }

// Next increments the counter, creating it at 1.
func (r *Redis) Next(ctx context.Context, key string) (int64, error) {
    return r.rdb.Incr(ctx, r.prefix+key).Result()
}
