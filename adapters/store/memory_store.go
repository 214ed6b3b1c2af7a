package store

import (
	"context"
	"sync"
	"time"
)

// Clock returns the current time. Stores take one so tests can move time.
type Clock func() time.Time

// MemoryStore is an in-memory implementation of ports.RevocationStore
type MemoryStore struct {
	revoked map[string]time.Time
	mu      sync.RWMutex
	clock   Clock
}

// Option configures the clock of a store.
type Option func(*Clock)

// WithClock sets the clock used to evaluate expiry.
func WithClock(clock Clock) Option {
	return func(c *Clock) {
		if clock != nil {
			*c = clock
		}
	}
}

func applyClock(opts []Option) Clock {
	clock := Clock(time.Now)
	for _, opt := range opts {
		if opt != nil {
			opt(&clock)
		}
	}
	return clock
}

// NewMemoryStore creates a new in-memory revocation store
func NewMemoryStore(opts ...Option) *MemoryStore {
	return &MemoryStore{
		revoked: make(map[string]time.Time),
		clock:   applyClock(opts),
	}
}

// Revoke marks a token key as revoked until expiry has elapsed
func (s *MemoryStore) Revoke(ctx context.Context, key string, expiry time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	expiresAt := s.clock().Add(expiry)
	// Keep the later expiry if the key is revoked again
	if current, exists := s.revoked[key]; !exists || expiresAt.After(current) {
		s.revoked[key] = expiresAt
	}

	return nil
}

// IsRevoked checks if a token key is revoked
func (s *MemoryStore) IsRevoked(ctx context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	expiresAt, exists := s.revoked[key]
	if !exists {
		return false, nil
	}

	// A revoked-and-expired token can never validate again, so the entry no longer matters
	return s.clock().Before(expiresAt), nil
}

// Sweep drops entries past their expiry and returns how many were removed
func (s *MemoryStore) Sweep(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock()
	removed := 0
	for key, expiresAt := range s.revoked {
		if !now.Before(expiresAt) {
			delete(s.revoked, key)
			removed++
		}
	}

	return removed, nil
}

// Len returns the number of entries currently held
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.revoked)
}
