package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/layer-3/gatekeeper/core"
	"github.com/redis/go-redis/v9"
)

// RedisChallengeStore keeps captcha challenges in Redis so any instance can verify them
type RedisChallengeStore struct {
	client redis.UniversalClient
	prefix string
	clock  Clock
}

type storedChallenge struct {
	Answer    string    `json:"answer"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// NewRedisChallengeStore creates a new Redis challenge store
func NewRedisChallengeStore(client redis.UniversalClient, opts ...Option) *RedisChallengeStore {
	return &RedisChallengeStore{
		client: client,
		prefix: "gatekeeper:captcha:",
		clock:  applyClock(opts),
	}
}

// Put stores the challenge with a TTL matching its expiry
func (s *RedisChallengeStore) Put(ctx context.Context, challenge *core.Challenge) error {
	ttl := challenge.ExpiresAt.Sub(s.clock())
	if ttl <= 0 {
		return fmt.Errorf("challenge %s already expired", challenge.ID)
	}

	payload, err := json.Marshal(storedChallenge{
		Answer:    challenge.Answer,
		IssuedAt:  challenge.IssuedAt,
		ExpiresAt: challenge.ExpiresAt,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal challenge: %w", err)
	}

	if err := s.client.Set(ctx, s.prefix+challenge.ID, payload, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store challenge: %w", err)
	}

	return nil
}

// Take reads and deletes the challenge with GETDEL so two verifiers can never both see it
func (s *RedisChallengeStore) Take(ctx context.Context, id string) (*core.Challenge, error) {
	payload, err := s.client.GetDel(ctx, s.prefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, core.ErrChallengeNotFound
		}
		return nil, fmt.Errorf("failed to take challenge: %w", err)
	}

	var stored storedChallenge
	if err := json.Unmarshal(payload, &stored); err != nil {
		return nil, fmt.Errorf("failed to unmarshal challenge: %w", err)
	}

	challenge := &core.Challenge{
		ID:        id,
		Answer:    stored.Answer,
		IssuedAt:  stored.IssuedAt,
		ExpiresAt: stored.ExpiresAt,
	}
	if challenge.Expired(s.clock()) {
		return nil, core.ErrChallengeNotFound
	}

	return challenge, nil
}
