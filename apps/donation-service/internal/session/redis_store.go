package session

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/prohmpiriya/donation-rush/apps/donation-service/internal/domain"
	"github.com/prohmpiriya/donation-rush/pkg/redis"
)

const redisKeyPrefix = "donation:session:"

// RedisClient is the subset of pkg/redis the store needs
type RedisClient interface {
	redis.Commander
	Del(ctx context.Context, keys ...string) *goredis.IntCmd
}

// RedisStore keeps sessions as JSON values in Redis
type RedisStore struct {
	client RedisClient
	ttl    time.Duration
}

// NewRedisStore creates a store; ttl 0 keeps records until cleared
func NewRedisStore(client RedisClient, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (r *RedisStore) Get(ctx context.Context, key string) (*domain.Session, error) {
	var s domain.Session
	found, err := redis.GetJSON(ctx, r.client, redisKeyPrefix+key, &s)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if !found {
		return nil, domain.ErrSessionNotFound
	}
	return &s, nil
}

func (r *RedisStore) Set(ctx context.Context, key string, s *domain.Session) error {
	if err := redis.SetJSON(ctx, r.client, redisKeyPrefix+key, s, r.ttl); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (r *RedisStore) Clear(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, redisKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}
