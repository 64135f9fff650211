// Package cache holds the shared cache backend contract. Implementations
// live in redisstore; consumers such as axisstore depend only on this.
package cache

import (
	"context"
	"time"
)

type Interface interface {
	MGet(ctx context.Context, keys []string) (map[string][]byte, error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	// DelPattern removes every key matching a glob and reports how many.
	DelPattern(ctx context.Context, pattern string) (int, error)
}
