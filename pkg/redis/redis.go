package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/prohmpiriya/donation-rush/pkg/config"
	"github.com/prohmpiriya/donation-rush/pkg/retry"
)

// Client is the shared Redis handle for donation sessions and idempotency
// records
type Client struct {
	rdb *redis.Client
}

// Options maps cfg onto go-redis options; zero values keep go-redis defaults
func Options(cfg *config.RedisConfig) *redis.Options {
	return &redis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
}

// NewClient connects and pings until Redis answers or policy gives up. A nil
// policy retries three times a second apart.
func NewClient(ctx context.Context, cfg *config.RedisConfig, policy *retry.Config) (*Client, error) {
	if policy == nil {
		policy = &retry.Config{MaxRetries: 3, InitialInterval: time.Second, Multiplier: 1}
	}

	rdb := redis.NewClient(Options(cfg))
	err := retry.Do(ctx, policy, func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	})
	if err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr(), err)
	}
	return &Client{rdb: rdb}, nil
}

func (c *Client) Close() error {
	return c.rdb.Close()
}

// HealthCheck pings with a 5s budget
func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis health check failed: %w", err)
	}
	return nil
}

func (c *Client) Get(ctx context.Context, key string) *redis.StringCmd {
	return c.rdb.Get(ctx, key)
}

func (c *Client) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	return c.rdb.Set(ctx, key, value, expiration)
}

func (c *Client) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd {
	return c.rdb.SetNX(ctx, key, value, expiration)
}

func (c *Client) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	return c.rdb.Del(ctx, keys...)
}

// Commander is the subset of commands the JSON helpers need
type Commander interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// GetJSON decodes the value at key into dst. It reports false with a nil
// error when the key does not exist.
func GetJSON(ctx context.Context, r Commander, key string, dst interface{}) (bool, error) {
	raw, err := r.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("failed to get %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return true, nil
}

// SetJSON encodes value and stores it at key
func SetJSON(ctx context.Context, r Commander, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	if err := r.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}
