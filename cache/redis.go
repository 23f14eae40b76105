package cache

import (
	"context"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"
)

// Invalidator drops read-cache entries after ingestion rewrites the
// underlying tables. A nil Invalidator is valid and does nothing, so the
// daemon runs fine without Redis configured.
type Invalidator struct {
	client *redis.Client
}

func NewInvalidator(ctx context.Context, redisURL string) (*Invalidator, error) {
	if redisURL == "" {
		return nil, nil
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &Invalidator{client: client}, nil
}

func (i *Invalidator) Close() error {
	if i == nil {
		return nil
	}
	return i.client.Close()
}

// InvalidateCrawlCaches deletes the namespaces that ingestion makes stale.
// Errors are logged, not returned; cache invalidation never fails a run.
func (i *Invalidator) InvalidateCrawlCaches(ctx context.Context) {
	if i == nil {
		return
	}
	for _, pattern := range []string{"complex:*", "analytics:*", "article:*"} {
		if err := i.deletePattern(ctx, pattern); err != nil {
			log.Printf("Warning: cache invalidation failed for %s: %v", pattern, err)
		}
	}
}

func (i *Invalidator) deletePattern(ctx context.Context, pattern string) error {
	iter := i.client.Scan(ctx, 0, pattern, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
		if len(keys) >= 500 {
			if err := i.client.Del(ctx, keys...).Err(); err != nil {
				return err
			}
			keys = keys[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) > 0 {
		return i.client.Del(ctx, keys...).Err()
	}
	return nil
}
