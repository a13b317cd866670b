// Package redis provides a distributed staleness tracker for in-flight
// API requests, backed by a Redis sorted set. telemetry.Logger keeps the
// authoritative in-flight/processing request records in local memory
// (request bodies and response data are too large to round-trip through
// Redis on every request); this tracker exists alongside it purely so
// every registryd replica can see which request ids are mid-processing
// and since when, for cross-replica staleness alerting.
package redis

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
)

// Tracker records in-flight request ids against a deadline in a Redis
// sorted set, scored by the deadline's Unix timestamp.
type Tracker struct {
	client *redis.Client
	key    string
}

// Config configures the tracker's Redis connection and set key.
type Config struct {
	RedisURL string // defaults to MCJARS_REDIS_URL or redis://localhost:6379/0
	SetKey   string // defaults to "mcjars:processing"
}

// NewTracker creates a Tracker and verifies connectivity.
func NewTracker(ctx context.Context, cfg Config) (*Tracker, error) {
	redisURL := cfg.RedisURL
	if redisURL == "" {
		redisURL = os.Getenv("MCJARS_REDIS_URL")
	}
	if redisURL == "" {
		redisURL = "redis://localhost:6379/0"
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	key := cfg.SetKey
	if key == "" {
		key = "mcjars:processing"
	}

	return &Tracker{client: client, key: key}, nil
}

// NewTrackerWithClient wraps an already-configured client (or a
// miniredis-backed one in tests) directly.
func NewTrackerWithClient(client *redis.Client, setKey string) *Tracker {
	if setKey == "" {
		setKey = "mcjars:processing"
	}
	return &Tracker{client: client, key: setKey}
}

// Close closes the underlying Redis connection.
func (t *Tracker) Close() error {
	return t.client.Close()
}

// MarkProcessing records requestID as in-flight until deadline.
func (t *Tracker) MarkProcessing(ctx context.Context, requestID string, deadline time.Time) error {
	return t.client.ZAdd(ctx, t.key, redis.Z{
		Score:  float64(deadline.Unix()),
		Member: requestID,
	}).Err()
}

// CompleteJob removes requestID from the tracked set, called once its
// record has been batched into telemetry's drain (or dropped as stale).
func (t *Tracker) CompleteJob(ctx context.Context, requestID string) error {
	return t.client.ZRem(ctx, t.key, requestID).Err()
}

// IsProcessing reports whether requestID is still tracked.
func (t *Tracker) IsProcessing(ctx context.Context, requestID string) (bool, error) {
	_, err := t.client.ZScore(ctx, t.key, requestID).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Stale returns every tracked request id whose deadline has already
// passed, for ops alerting on replicas that died mid-request.
func (t *Tracker) Stale(ctx context.Context, now time.Time) ([]string, error) {
	return t.client.ZRangeByScore(ctx, t.key, &redis.ZRangeBy{
		Min: "-inf",
		Max: fmt.Sprintf("%d", now.Unix()),
	}).Result()
}
