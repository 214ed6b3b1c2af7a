package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore is a Redis implementation of ports.RevocationStore
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStore creates a new Redis store
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: "gatekeeper:revoked:",
	}
}

// Revoke marks a token key as revoked in Redis. Redis drops the key once expiry elapses.
func (s *RedisStore) Revoke(ctx context.Context, key string, expiry time.Duration) error {
	if expiry <= 0 {
		return nil
	}

	if err := s.client.Set(ctx, s.prefix+key, "1", expiry).Err(); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}

	return nil
}

// IsRevoked checks if a token key is revoked in Redis
func (s *RedisStore) IsRevoked(ctx context.Context, key string) (bool, error) {
	val, err := s.client.Exists(ctx, s.prefix+key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check token revocation: %w", err)
	}

	return val > 0, nil
}
