// Package cache is the remote KV cache facade (a typed layer over Redis)
// and the generic memoization primitive every domain read model builds on.
// It generalizes the teacher's db/repository.RedisRepository cache methods
// (SetCache/GetCache/DeleteCache) into the "cache:" key space described in
// original_source/backend/src/cache.rs, adding the hit/miss counters and
// prefix-delete that file's Cache struct exposes.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mcjars/registry/config"
)

// Client wraps a redis.UniversalClient (plain or sentinel-backed) with the
// JSON get/set/delete-prefix vocabulary and atomic hit/miss counters C1
// requires. Keys live under the "cache:" prefix, matching the teacher's
// RedisRepository convention.
type Client struct {
	rdb redis.UniversalClient

	hits   atomic.Int64
	misses atomic.Int64
}

const keyPrefix = "cache:"

// NewForTest builds a Client around an already-connected redis client,
// letting other packages' tests exercise the rate limiter and Cached[T]
// against a miniredis instance without going through New's sentinel/
// direct connection selection.
func NewForTest(rdb redis.UniversalClient) *Client {
	return &Client{rdb: rdb}
}

// New connects to Redis in either direct or sentinel mode depending on
// env.RedisMode, matching the teacher's options pattern
// (redis.ParseURL/redis.NewFailoverClient) generalized to read the sentinel
// address format from cache.rs ("sentinel://host1,host2,.../master/db").
func New(ctx context.Context, env *config.Env) (*Client, error) {
	var rdb redis.UniversalClient

	switch env.RedisMode {
	case config.RedisModeSentinel:
		master, db, err := parseSentinelAddr(env.RedisAddr())
		if err != nil {
			return nil, err
		}
		rdb = redis.NewFailoverClient(&redis.FailoverOptions{
			MasterName:    master,
			SentinelAddrs: env.RedisSentinels,
			DB:            db,
		})
	default:
		opts, err := redis.ParseURL(env.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		rdb = redis.NewClient(opts)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// parseSentinelAddr turns "sentinel://host1,host2/mymaster/0" into the
// master name and db index redis.FailoverOptions wants; the host list is
// already carried separately on config.Env.RedisSentinels.
func parseSentinelAddr(addr string) (master string, db int, err error) {
	trimmed := strings.TrimPrefix(addr, "sentinel://")
	parts := strings.Split(trimmed, "/")
	if len(parts) < 2 {
		return "", 0, fmt.Errorf("malformed sentinel address %q", addr)
	}
	master = parts[1]
	if len(parts) >= 3 {
		fmt.Sscanf(parts[2], "%d", &db)
	}
	return master, db, nil
}

// Close releases the underlying Redis connection(s).
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Hits returns the number of cache hits observed so far.
func (c *Client) Hits() int64 { return c.hits.Load() }

// Misses returns the number of cache misses observed so far.
func (c *Client) Misses() int64 { return c.misses.Load() }

// Get performs a GET and JSON-decodes into dest. The bool return reports
// presence; a malformed payload is reported as an error rather than a
// miss, matching C1's "fails loud" requirement for undecodable entries.
func Get[T any](ctx context.Context, c *Client, key string) (value T, found bool, err error) {
	raw, err := c.rdb.Get(ctx, keyPrefix+key).Bytes()
	if err == redis.Nil {
		return value, false, nil
	}
	if err != nil {
		return value, false, fmt.Errorf("cache get %q: %w", key, err)
	}

	if err := json.Unmarshal(raw, &value); err != nil {
		return value, false, fmt.Errorf("cache get %q: malformed payload: %w", key, err)
	}
	return value, true, nil
}

// Set JSON-encodes value and stores it with the given TTL.
func Set[T any](ctx context.Context, c *Client, key string, value T, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache set %q: encode: %w", key, err)
	}
	if err := c.rdb.Set(ctx, keyPrefix+key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("cache set %q: %w", key, err)
	}
	return nil
}

// DeletePrefix runs KEYS prefix* then DEL on whatever matches. It is
// O(n) in store key count by design (spec'd explicitly as callers-beware);
// used only at organization mutation boundaries.
func (c *Client) DeletePrefix(ctx context.Context, prefix string) error {
	keys, err := c.rdb.Keys(ctx, keyPrefix+prefix+"*").Result()
	if err != nil {
		return fmt.Errorf("cache keys %q*: %w", prefix, err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("cache del %q*: %w", prefix, err)
	}
	return nil
}

// ClearOrganization invalidates every cached entry scoped to one
// organization, mirroring cache.rs's clear_organization.
func (c *Client) ClearOrganization(ctx context.Context, organizationID string) error {
	return c.DeletePrefix(ctx, fmt.Sprintf("organization::%s", organizationID))
}

// ExpireTime returns the absolute Unix expiry of key, or zero if the key
// has no TTL or does not exist. Used by the rate limiter to decide whether
// an existing window can be reused.
func (c *Client) ExpireTime(ctx context.Context, key string) (time.Time, error) {
	d, err := c.rdb.ExpireTime(ctx, keyPrefix+key).Result()
	if err != nil {
		return time.Time{}, err
	}
	if d < 0 {
		return time.Time{}, nil
	}
	return time.Unix(int64(d/time.Second), 0), nil
}

// SetExpireAt overwrites key with value and an absolute expiry, used by
// the rate limiter's "SET value EXAT expiry" step.
func (c *Client) SetExpireAt(ctx context.Context, key string, value int64, at time.Time) error {
	return c.rdb.Set(ctx, keyPrefix+key, value, time.Until(at)).Err()
}

// Incr increments an integer cache entry by one, creating it at 1 if
// absent, and returns the post-increment value.
func (c *Client) Incr(ctx context.Context, key string) (int64, error) {
	return c.rdb.Incr(ctx, keyPrefix+key).Result()
}

// GetInt64 reads a raw (non-JSON) integer counter, returning 0 if absent.
// Used by the rate limiter, which stores plain integers rather than
// JSON-encoded values.
func (c *Client) GetInt64(ctx context.Context, key string) (int64, error) {
	v, err := c.rdb.Get(ctx, keyPrefix+key).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return v, err
}

// Cached is the central memoization primitive (C2): on a hit it decodes
// and returns the cached value; on a miss it runs compute, caches the
// result with ttl, and returns it. Every domain read model in models/
// goes through this instead of calling the cache client directly.
func Cached[T any](ctx context.Context, c *Client, key string, ttl time.Duration, compute func(context.Context) (T, error)) (T, error) {
	if value, found, err := Get[T](ctx, c, key); err != nil {
		var zero T
		return zero, err
	} else if found {
		c.hits.Add(1)
		return value, nil
	}

	c.misses.Add(1)

	value, err := compute(ctx)
	if err != nil {
		var zero T
		return zero, err
	}

	if err := Set(ctx, c, key, value, ttl); err != nil {
		return value, nil
	}

	return value, nil
}
