package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/layer-3/gatekeeper/core"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisStore(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestRedis(t)
	s := NewRedisStore(client)

	revoked, err := s.IsRevoked(ctx, "k1")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, s.Revoke(ctx, "k1", time.Hour))
	require.NoError(t, s.Revoke(ctx, "k1", time.Hour))
	assert.True(t, mr.Exists("gatekeeper:revoked:k1"))

	revoked, err = s.IsRevoked(ctx, "k1")
	require.NoError(t, err)
	assert.True(t, revoked)

	mr.FastForward(time.Hour + time.Second)
	revoked, err = s.IsRevoked(ctx, "k1")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestRedisStore_NonPositiveExpiryIsNoop(t *testing.T) {
	mr, client := newTestRedis(t)
	s := NewRedisStore(client)

	require.NoError(t, s.Revoke(context.Background(), "gone", 0))
	assert.False(t, mr.Exists("gatekeeper:revoked:gone"))
}

func TestRedisStore_Unavailable(t *testing.T) {
	mr, client := newTestRedis(t)
	s := NewRedisStore(client)
	mr.Close()

	_, err := s.IsRevoked(context.Background(), "k1")
	assert.Error(t, err)
}

func TestRedisChallengeStore(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestRedis(t)
	s := NewRedisChallengeStore(client)

	now := time.Now()
	require.NoError(t, s.Put(ctx, &core.Challenge{
		ID:        "c1",
		Answer:    "7gK2",
		IssuedAt:  now,
		ExpiresAt: now.Add(5 * time.Minute),
	}))
	assert.True(t, mr.Exists("gatekeeper:captcha:c1"))

	challenge, err := s.Take(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "7gK2", challenge.Answer)
	assert.Equal(t, "c1", challenge.ID)
	assert.False(t, mr.Exists("gatekeeper:captcha:c1"))

	_, err = s.Take(ctx, "c1")
	assert.ErrorIs(t, err, core.ErrChallengeNotFound)
}

func TestRedisChallengeStore_Expiry(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestRedis(t)
	s := NewRedisChallengeStore(client)

	now := time.Now()
	require.NoError(t, s.Put(ctx, &core.Challenge{ID: "c2", Answer: "abcd", IssuedAt: now, ExpiresAt: now.Add(time.Minute)}))
	mr.FastForward(2 * time.Minute)

	_, err := s.Take(ctx, "c2")
	assert.ErrorIs(t, err, core.ErrChallengeNotFound)

	err = s.Put(ctx, &core.Challenge{ID: "c3", ExpiresAt: now.Add(-time.Second)})
	assert.Error(t, err)
}
