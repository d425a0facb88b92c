// Package seencache tracks listing URLs seen in recent runs so the
// detail pass can skip pages it already enriched. Missing a cache hit
// is harmless; the upsert keeps the store correct either way.
package seencache

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache answers whether a listing URL was recently processed.
type Cache interface {
	Seen(ctx context.Context, source, applyLink string) bool
	Mark(ctx context.Context, source, applyLink string) error
	Close() error
}

// Noop never remembers anything. Used when no Redis is configured.
type Noop struct{}

func (Noop) Seen(ctx context.Context, source, applyLink string) bool  { return false }
func (Noop) Mark(ctx context.Context, source, applyLink string) error { return nil }
func (Noop) Close() error                                             { return nil }

// Redis remembers listings across runs with a TTL, so delisted
// postings eventually age out and get re-fetched if they reappear.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis parses redisURL, verifies connectivity and returns the
// cache. A zero ttl defaults to 30 days.
func NewRedis(ctx context.Context, redisURL string, ttl time.Duration) (*Redis, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis.ParseURL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &Redis{client: client, ttl: ttl}, nil
}

// Seen treats any Redis failure as a miss.
func (r *Redis) Seen(ctx context.Context, source, applyLink string) bool {
	n, err := r.client.Exists(ctx, key(source, applyLink)).Result()
	return err == nil && n > 0
}

func (r *Redis) Mark(ctx context.Context, source, applyLink string) error {
	return r.client.Set(ctx, key(source, applyLink), 1, r.ttl).Err()
}

func (r *Redis) Close() error { return r.client.Close() }

func key(source, applyLink string) string {
	sum := md5.Sum([]byte(applyLink))
	return "crawler:seen:" + source + ":" + hex.EncodeToString(sum[:])
}
