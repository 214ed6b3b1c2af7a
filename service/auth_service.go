package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/layer-3/gatekeeper/core"
	"github.com/layer-3/gatekeeper/internal/metrics"
	"github.com/layer-3/gatekeeper/ports"
)

// LoginRequest carries everything a login needs
type LoginRequest struct {
	Username      string
	Password      string
	CaptchaID     string
	CaptchaAnswer string
}

// LoginResult is a fresh token and the profile of its owner
type LoginResult struct {
	Token   *core.SessionToken
	Profile core.Profile
}

// AuthService handles the login, logout and current-user flows
type AuthService struct {
	captcha     *CaptchaService
	credentials *CredentialVerifier
	tokens      *TokenService
	directory   ports.UserDirectory
	eventPub    ports.EventPublisher
	logger      *slog.Logger
	metrics     *metrics.Metrics
}

// NewAuthService creates a new authentication service. eventPub may be nil.
func NewAuthService(
	captcha *CaptchaService,
	credentials *CredentialVerifier,
	tokens *TokenService,
	directory ports.UserDirectory,
	eventPub ports.EventPublisher,
	logger *slog.Logger,
	m *metrics.Metrics,
) *AuthService {
	return &AuthService{
		captcha:     captcha,
		credentials: credentials,
		tokens:      tokens,
		directory:   directory,
		eventPub:    eventPub,
		logger:      orDiscard(logger),
		metrics:     m,
	}
}

// Login verifies the captcha, then the credentials, then issues a token.
// The captcha goes first because it is cheap and single use: a failed captcha never
// reaches the password check.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	if err := s.captcha.Verify(ctx, req.CaptchaID, req.CaptchaAnswer); err != nil {
		s.metrics.Login("captcha_invalid")
		return nil, err
	}

	identity, err := s.credentials.Verify(ctx, core.Credential{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		if errors.Is(err, core.ErrInvalidCredentials) {
			s.metrics.Login("invalid_credentials")
			s.logger.InfoContext(ctx, "login rejected", "username", req.Username)
		} else {
			s.metrics.Login("error")
		}
		return nil, err
	}

	token, err := s.tokens.Issue(ctx, *identity)
	if err != nil {
		s.metrics.Login("error")
		return nil, err
	}

	s.metrics.Login("success")
	s.logger.InfoContext(ctx, "login succeeded", "user_id", identity.ID, "token_id", token.Session.ID)

	return &LoginResult{
		Token:   token,
		Profile: core.ProfileOf(*identity),
	}, nil
}

// Logout revokes the bearer token in the Authorization header. A missing header, or one
// that is not a bearer header, is a successful no-op.
func (s *AuthService) Logout(ctx context.Context, authorization string) error {
	token, ok := BearerToken(authorization)
	if !ok {
		return nil
	}

	revocation, err := s.tokens.Revoke(ctx, token)
	if err != nil {
		return err
	}

	// Publish logout event for cross-instance notifications
	if s.eventPub != nil {
		if err := s.eventPub.PublishLogout(ctx, revocation.Subject, revocation.Key, revocation.TTL); err != nil {
			// The local revocation already holds; other instances catch up through shared stores
			s.logger.WarnContext(ctx, "failed to publish logout event", "error", err)
		}
	}

	if revocation.Subject != "" {
		s.logger.InfoContext(ctx, "logout", "user_id", revocation.Subject)
	}
	return nil
}

// WhoAmI projects the identity bound by the guard into its current profile
func (s *AuthService) WhoAmI(ctx context.Context, identity core.Identity) (core.Profile, error) {
	record, err := s.directory.FindByID(ctx, identity.ID)
	if err != nil {
		if errors.Is(err, core.ErrUserNotFound) {
			return core.Profile{}, core.ErrUnauthorized
		}
		return core.Profile{}, fmt.Errorf("failed to look up user: %w", err)
	}
	return core.ProfileOf(record.Identity), nil
}
