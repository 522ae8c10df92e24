// Package cache keeps the latest site snapshot in Redis so a restarted
// replica can serve the dashboard before its first upstream poll finishes.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/perse/carbon-dashboard/internal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	SnapshotKey  = "carbon:sites:snapshot"
	FetchedAtKey = "carbon:sites:fetched_at"
)

// ErrMiss is returned by Load when no snapshot is cached.
var ErrMiss = errors.New("cache: snapshot not found")

// SnapshotCache stores the record collection as JSON in Redis.
type SnapshotCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSnapshotCache returns a cache writing entries with the given TTL.
// A zero TTL keeps entries until overwritten.
func NewSnapshotCache(client *redis.Client, ttl time.Duration) *SnapshotCache {
	return &SnapshotCache{client: client, ttl: ttl}
}

// Connect parses a redis:// URL and pings the server.
func Connect(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return client, nil
}

// Save writes records and their fetch time in one transaction.
func (c *SnapshotCache) Save(ctx context.Context, records []domain.SiteRecord, at time.Time) error {
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	_, err = c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, SnapshotKey, data, c.ttl)
		pipe.Set(ctx, FetchedAtKey, at.UTC().Format(time.RFC3339Nano), c.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}
	return nil
}

// Load returns the cached records and when they were fetched.
func (c *SnapshotCache) Load(ctx context.Context) ([]domain.SiteRecord, time.Time, error) {
	data, err := c.client.Get(ctx, SnapshotKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, time.Time{}, ErrMiss
	}
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("loading snapshot: %w", err)
	}

	var records []domain.SiteRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, time.Time{}, fmt.Errorf("decoding snapshot: %w", err)
	}

	var fetchedAt time.Time
	raw, err := c.client.Get(ctx, FetchedAtKey).Result()
	switch {
	case errors.Is(err, redis.Nil):
	case err != nil:
		return nil, time.Time{}, fmt.Errorf("loading snapshot time: %w", err)
	default:
		fetchedAt, _ = time.Parse(time.RFC3339Nano, raw)
	}
	return records, fetchedAt, nil
}
