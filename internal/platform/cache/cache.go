// Package cache provides a Dragonfly/Redis client wrapper and the
// distributed lock used to serialize progress writes across instances.
package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix namespaces every key this service writes.
const DefaultKeyPrefix = "pathfinder"

// Options holds connection settings.
type Options struct {
	URL          string
	KeyPrefix    string
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Cache wraps a Redis/Dragonfly client. All keys go through Key so several
// services can share one instance.
type Cache struct {
	Client *redis.Client
	prefix string
}

// ParseURL validates a Redis connection URL.
func ParseURL(url string) (*redis.Options, error) {
	if url == "" {
		return nil, fmt.Errorf("cache URL is empty")
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid cache URL: %w", err)
	}
	return opts, nil
}

// New connects to the cache and verifies it answers PING.
func New(ctx context.Context, o Options) (*Cache, error) {
	opts, err := ParseURL(o.URL)
	if err != nil {
		return nil, err
	}

	opts.DialTimeout = durationOr(o.DialTimeout, 5*time.Second)
	opts.ReadTimeout = durationOr(o.ReadTimeout, 3*time.Second)
	opts.WriteTimeout = durationOr(o.WriteTimeout, 3*time.Second)

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("pinging cache: %w", err)
	}

	return newCache(client, o.KeyPrefix), nil
}

func newCache(client *redis.Client, prefix string) *Cache {
	prefix = strings.Trim(prefix, ":")
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &Cache{Client: client, prefix: prefix}
}

// Key joins parts under the cache's prefix, e.g. "pathfinder:lock:progress:u1:t1".
func (c *Cache) Key(parts ...string) string {
	return c.prefix + ":" + strings.Join(parts, ":")
}

// Close shuts down the cache client.
func (c *Cache) Close() error {
	return c.Client.Close()
}

// HealthCheck verifies the cache connection is alive.
func (c *Cache) HealthCheck(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}

func durationOr(d, fallback time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return fallback
}
