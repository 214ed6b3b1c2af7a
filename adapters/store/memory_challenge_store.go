package store

import (
	"context"
	"sync"

	"github.com/layer-3/gatekeeper/core"
)

// MemoryChallengeStore keeps captcha challenges in process memory
type MemoryChallengeStore struct {
	challenges map[string]core.Challenge
	mu         sync.Mutex
	clock      Clock
}

// NewMemoryChallengeStore creates an empty challenge store
func NewMemoryChallengeStore(opts ...Option) *MemoryChallengeStore {
	return &MemoryChallengeStore{
		challenges: make(map[string]core.Challenge),
		clock:      applyClock(opts),
	}
}

// Put stores a challenge under its id
func (s *MemoryChallengeStore) Put(ctx context.Context, challenge *core.Challenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.challenges[challenge.ID] = *challenge
	return nil
}

// Take removes the challenge and returns it if it has not expired
func (s *MemoryChallengeStore) Take(ctx context.Context, id string) (*core.Challenge, error) {
	s.mu.Lock()
	challenge, exists := s.challenges[id]
	delete(s.challenges, id)
	s.mu.Unlock()

	if !exists || challenge.Expired(s.clock()) {
		return nil, core.ErrChallengeNotFound
	}

	return &challenge, nil
}

// Sweep drops challenges that expired without being verified
func (s *MemoryChallengeStore) Sweep(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock()
	removed := 0
	for id, challenge := range s.challenges {
		if challenge.Expired(now) {
			delete(s.challenges, id)
			removed++
		}
	}

	return removed, nil
}

// Len returns the number of challenges currently held
func (s *MemoryChallengeStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.challenges)
}
