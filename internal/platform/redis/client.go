// Package redis opens the optional Redis connection used for real-time push.
package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"procura/internal/platform/config"
)

const clientName = "procura"

// Client is the shared connection. It satisfies redis.UniversalClient so it
// can be handed straight to publishers.
type Client struct {
	*redis.Client
}

// New connects and pings. It returns nil, nil when REDIS_URL is unset so
// callers can treat push as disabled.
func New(ctx context.Context, cfg config.RedisConfig) (*Client, error) {
	if cfg.URL == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	opts.ClientName = clientName
	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns
	opts.DialTimeout = cfg.DialTimeout
	opts.ReadTimeout = cfg.ReadTimeout
	opts.WriteTimeout = cfg.WriteTimeout

	c := &Client{Client: redis.NewClient(opts)}
	pingCtx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()
	if err := c.Health(pingCtx); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

// Health is the readiness probe for the connection.
func (c *Client) Health(ctx context.Context) error {
	if err := c.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}
