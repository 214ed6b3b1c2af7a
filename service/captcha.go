package service

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/layer-3/gatekeeper/core"
	"github.com/layer-3/gatekeeper/internal/metrics"
	"github.com/layer-3/gatekeeper/ports"
)

// captchaAlphabet leaves out characters that are easy to confuse in a distorted image
const captchaAlphabet = "23456789abcdefghjkmnpqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ"

// Defaults used when no option overrides them
const (
	DefaultCaptchaTTL    = 5 * time.Minute
	DefaultCaptchaLength = 4
)

// CaptchaImage is an issued challenge as handed to the client
type CaptchaImage struct {
	ID    string `json:"captchaId"`
	Image string `json:"image"`
}

// CaptchaService issues and verifies single-use captcha challenges
type CaptchaService struct {
	store    ports.ChallengeStore
	renderer ports.CaptchaRenderer
	logger   *slog.Logger
	metrics  *metrics.Metrics

	ttl       time.Duration
	length    int
	clock     func() time.Time
	newID     func() string
	newAnswer func(length int) (string, error)
}

// CaptchaOption configures a CaptchaService
type CaptchaOption func(*CaptchaService)

// WithCaptchaTTL sets how long an unverified challenge stays valid.
func WithCaptchaTTL(ttl time.Duration) CaptchaOption {
	return func(s *CaptchaService) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithCaptchaLength sets the number of characters in an answer.
func WithCaptchaLength(length int) CaptchaOption {
	return func(s *CaptchaService) {
		if length > 0 {
			s.length = length
		}
	}
}

// WithCaptchaClock replaces the time source used for challenge expiry.
func WithCaptchaClock(clock func() time.Time) CaptchaOption {
	return func(s *CaptchaService) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithCaptchaGenerators replaces the id and answer generators. Tests use it to get
// predictable challenges.
func WithCaptchaGenerators(newID func() string, newAnswer func(length int) (string, error)) CaptchaOption {
	return func(s *CaptchaService) {
		if newID != nil {
			s.newID = newID
		}
		if newAnswer != nil {
			s.newAnswer = newAnswer
		}
	}
}

// WithCaptchaMetrics records issued and verified challenges on m.
func WithCaptchaMetrics(m *metrics.Metrics) CaptchaOption {
	return func(s *CaptchaService) {
		s.metrics = m
	}
}

// NewCaptchaService creates a captcha service
func NewCaptchaService(store ports.ChallengeStore, renderer ports.CaptchaRenderer, logger *slog.Logger, opts ...CaptchaOption) *CaptchaService {
	s := &CaptchaService{
		store:     store,
		renderer:  renderer,
		logger:    orDiscard(logger),
		ttl:       DefaultCaptchaTTL,
		length:    DefaultCaptchaLength,
		clock:     time.Now,
		newID:     uuid.NewString,
		newAnswer: randomAnswer,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Issue creates a challenge, stores its answer and returns the rendered image
func (s *CaptchaService) Issue(ctx context.Context) (*CaptchaImage, error) {
	answer, err := s.newAnswer(s.length)
	if err != nil {
		return nil, fmt.Errorf("failed to generate captcha answer: %w", err)
	}

	image, err := s.renderer.Render(answer)
	if err != nil {
		return nil, fmt.Errorf("failed to render captcha: %w", err)
	}

	now := s.clock()
	challenge := &core.Challenge{
		ID:        s.newID(),
		Answer:    answer,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.ttl),
	}

	if err := s.store.Put(ctx, challenge); err != nil {
		return nil, fmt.Errorf("failed to store challenge: %w", err)
	}

	s.metrics.CaptchaIssued()
	return &CaptchaImage{ID: challenge.ID, Image: image}, nil
}

// Verify consumes the challenge and checks the answer. The challenge is gone afterwards
// whatever the outcome; a second call fails with core.ErrChallengeNotFound.
// Answers are compared case-insensitively.
func (s *CaptchaService) Verify(ctx context.Context, id, answer string) error {
	if id == "" {
		s.metrics.CaptchaVerified("not_found")
		return core.ErrChallengeNotFound
	}

	challenge, err := s.store.Take(ctx, id)
	if err != nil {
		if errors.Is(err, core.ErrChallengeNotFound) {
			s.metrics.CaptchaVerified("not_found")
			return core.ErrChallengeNotFound
		}
		s.logger.WarnContext(ctx, "challenge store unavailable", "error", err)
		return fmt.Errorf("failed to take challenge: %w", err)
	}

	if !answersMatch(challenge.Answer, answer) {
		s.metrics.CaptchaVerified("mismatch")
		return core.ErrCaptchaInvalid
	}

	s.metrics.CaptchaVerified("ok")
	return nil
}

func answersMatch(expected, submitted string) bool {
	e := []byte(strings.ToLower(expected))
	g := []byte(strings.ToLower(strings.TrimSpace(submitted)))
	return subtle.ConstantTimeCompare(e, g) == 1
}

func randomAnswer(length int) (string, error) {
	size := big.NewInt(int64(len(captchaAlphabet)))
	var b strings.Builder
	b.Grow(length)
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, size)
		if err != nil {
			return "", err
		}
		b.WriteByte(captchaAlphabet[n.Int64()])
	}
	return b.String(), nil
}
