package redisad

import (
	"context"
	"time"
)

// Acquire takes key with SET NX for ttl. The lease is never released early:
// letting it expire keeps a second replica from re-running the same day.
func (r *Cache) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := r.c.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), ttl).Result()
	if err != nil {
		return false, err
	}
	return ok, nil
}
