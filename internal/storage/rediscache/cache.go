package rediscache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"analyticsScope/internal/dashboard"
	"analyticsScope/internal/storage"
)

type Config struct {
	Addr     string
	Password string
	DB       int
	// Prefix namespaces every key and channel.
	Prefix string
	// TTL of the stored snapshot; zero keeps it forever.
	TTL time.Duration
}

// Cache stores the latest snapshot in Redis and announces each refresh on a channel.
type Cache struct {
	cli    redis.Cmdable
	closer func() error
	prefix string
	ttl    time.Duration
}

func NewCache(cfg Config) *Cache {
	rdb := redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})
	c := NewCacheWithClient(rdb, cfg.Prefix, cfg.TTL)
	c.closer = rdb.Close
	return c
}

// NewCacheWithClient wraps an existing client.
func NewCacheWithClient(cli redis.Cmdable, prefix string, ttl time.Duration) *Cache {
	if prefix == "" {
		prefix = "dashboard"
	}
	return &Cache{cli: cli, prefix: prefix, ttl: ttl}
}

func (c *Cache) Name() string { return "redis" }

// SnapshotKey is the key holding the latest full snapshot.
func (c *Cache) SnapshotKey() string { return c.prefix + ":snapshot" }

// Channel receives one summary message per refresh.
func (c *Cache) Channel() string { return c.prefix + ":updates" }

func (c *Cache) Ping(ctx context.Context) error {
	return c.cli.Ping(ctx).Err()
}

func (c *Cache) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer()
}

// PutSnapshot stores snap and publishes its summary.
func (c *Cache) PutSnapshot(ctx context.Context, snap *dashboard.Snapshot) error {
	if snap == nil {
		return nil
	}
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := c.cli.Set(ctx, c.SnapshotKey(), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("set snapshot: %w", err)
	}

	summary, err := json.Marshal(storage.NewSummaryRecord(snap))
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	if err := c.cli.Publish(ctx, c.Channel(), summary).Err(); err != nil {
		return fmt.Errorf("publish summary: %w", err)
	}
	return nil
}

// GetSnapshot returns the stored snapshot; ok is false when the key is missing.
func (c *Cache) GetSnapshot(ctx context.Context) (*dashboard.Snapshot, bool, error) {
	b, err := c.cli.Get(ctx, c.SnapshotKey()).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, false, nil
		}
		return nil, false, err
	}
	var snap dashboard.Snapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		return nil, false, fmt.Errorf("parse snapshot: %w", err)
	}
	return &snap, true, nil
}
