package ports

import (
	"context"
	"time"

	"github.com/layer-3/gatekeeper/core"
)

// RevocationStore records revoked tokens
type RevocationStore interface {
	// Revoke records key as revoked until expiry has passed. Revoking twice is not an error.
	Revoke(ctx context.Context, key string, expiry time.Duration) error
	IsRevoked(ctx context.Context, key string) (bool, error)
}

// Sweeper is implemented by stores that need explicit removal of expired entries
type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// ChallengeStore holds pending captcha challenges
type ChallengeStore interface {
	Put(ctx context.Context, challenge *core.Challenge) error
	// Take returns and removes the challenge in one atomic step. It returns
	// core.ErrChallengeNotFound when the id is unknown or expired.
	Take(ctx context.Context, id string) (*core.Challenge, error)
}
