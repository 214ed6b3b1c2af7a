package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/layer-3/gatekeeper/core"
	"github.com/layer-3/gatekeeper/internal/metrics"
	"github.com/layer-3/gatekeeper/ports"
)

const DefaultTokenTTL = 24 * time.Hour

// Revocation describes a completed revoke
type Revocation struct {
	Key     string        // Registry key of the token
	Subject string        // Identity id, empty when the token could not be decoded
	TTL     time.Duration // How long the registry keeps the entry
}

// TokenService issues, validates and revokes session tokens
type TokenService struct {
	tokenizer ports.Tokenizer
	store     ports.RevocationStore
	logger    *slog.Logger
	metrics   *metrics.Metrics

	ttl   time.Duration
	clock func() time.Time
	newID func() string
}

// TokenOption configures a TokenService
type TokenOption func(*TokenService)

// WithTokenTTL sets the lifetime of issued tokens. Non-positive values are ignored.
func WithTokenTTL(ttl time.Duration) TokenOption {
	return func(s *TokenService) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithTokenClock replaces the time source used for issuance and revocation TTLs.
func WithTokenClock(clock func() time.Time) TokenOption {
	return func(s *TokenService) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithTokenMetrics records validations and revocations on m.
func WithTokenMetrics(m *metrics.Metrics) TokenOption {
	return func(s *TokenService) {
		s.metrics = m
	}
}

// NewTokenService creates a token service
func NewTokenService(tokenizer ports.Tokenizer, store ports.RevocationStore, logger *slog.Logger, opts ...TokenOption) *TokenService {
	s := &TokenService{
		tokenizer: tokenizer,
		store:     store,
		logger:    orDiscard(logger),
		ttl:       DefaultTokenTTL,
		clock:     time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// TTL is the lifetime of issued tokens
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// Issue creates a signed token bound to identity
func (s *TokenService) Issue(ctx context.Context, identity core.Identity) (*core.SessionToken, error) {
	if identity.ID == "" {
		return nil, fmt.Errorf("cannot issue token without subject: %w", core.ErrValidation)
	}

	// JWT timestamps have second precision
	now := s.clock().Truncate(time.Second)
	session := &core.Session{
		ID:        s.newID(),
		Subject:   identity.ID,
		Username:  identity.Username,
		Roles:     identity.Roles,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.ttl),
	}

	value, err := s.tokenizer.SessionToToken(session)
	if err != nil {
		return nil, fmt.Errorf("failed to create access token: %w", err)
	}

	return &core.SessionToken{Value: value, Session: session}, nil
}

// Validate checks signature, expiry and revocation, in that order. It fails with
// core.ErrTokenMalformed, core.ErrTokenExpired or core.ErrTokenRevoked.
func (s *TokenService) Validate(ctx context.Context, value string) (*core.Session, error) {
	session, err := s.tokenizer.TokenToSession(value)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrTokenExpired):
			s.metrics.TokenValidated("expired")
			return nil, core.ErrTokenExpired
		case errors.Is(err, core.ErrTokenMalformed):
			s.metrics.TokenValidated("malformed")
			return nil, err
		default:
			s.metrics.TokenValidated("malformed")
			return nil, fmt.Errorf("%w: %v", core.ErrTokenMalformed, err)
		}
	}

	revoked, err := s.store.IsRevoked(ctx, RevocationKey(value))
	if err != nil {
		return nil, fmt.Errorf("failed to check token revocation: %w", err)
	}
	if revoked {
		s.metrics.TokenValidated("revoked")
		return nil, core.ErrTokenRevoked
	}

	s.metrics.TokenValidated("ok")
	return session, nil
}

// Revoke records the token as revoked. Any value is accepted: revoking an unknown,
// malformed or already revoked token succeeds.
func (s *TokenService) Revoke(ctx context.Context, value string) (*Revocation, error) {
	revocation := &Revocation{
		Key: RevocationKey(value),
		TTL: s.ttl,
	}

	// A decodable token only needs to stay revoked for its remaining lifetime
	if session, err := s.tokenizer.TokenToSession(value); err == nil {
		revocation.Subject = session.Subject
		if remaining := session.ExpiresAt.Sub(s.clock()); remaining > 0 {
			revocation.TTL = remaining
		}
	}

	if err := s.store.Revoke(ctx, revocation.Key, revocation.TTL); err != nil {
		return nil, fmt.Errorf("failed to revoke token: %w", err)
	}

	s.metrics.TokenRevoked()
	return revocation, nil
}

// RevocationKey is the registry key of a token value. Raw tokens are never stored.
func RevocationKey(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}
