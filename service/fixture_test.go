package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/layer-3/gatekeeper/adapters/directory"
	"github.com/layer-3/gatekeeper/adapters/store"
	"github.com/layer-3/gatekeeper/adapters/tokenizer"
	"github.com/layer-3/gatekeeper/core"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var testSigningKey = []byte("service-test-signing-key")

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type stubRenderer struct{}

func (stubRenderer) Render(answer string) (string, error) {
	return "data:image/png;base64,stub-" + answer, nil
}

// MockEventPublisher implements ports.EventPublisher for testing
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) PublishLogout(ctx context.Context, subject string, tokenKey string, expiry time.Duration) error {
	args := m.Called(ctx, subject, tokenKey, expiry)
	return args.Error(0)
}

// sequence hands out the queued values in order
type sequence struct {
	mu     sync.Mutex
	values []string
}

func (s *sequence) next() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.values[0]
	s.values = s.values[1:]
	return v
}

type fixture struct {
	clock       *testClock
	revocations *store.MemoryStore
	challenges  *store.MemoryChallengeStore
	directory   *directory.MemoryDirectory
	tokenizer   *tokenizer.JWTTokenizer
	captcha     *CaptchaService
	credentials *CredentialVerifier
	tokens      *TokenService
	guard       *Guard
	events      *MockEventPublisher
	auth        *AuthService
	users       *UserService
	ids         *sequence
	answers     *sequence
	alice       core.Identity
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		clock:   &testClock{now: time.Now().Truncate(time.Second)},
		ids:     &sequence{},
		answers: &sequence{},
		events:  &MockEventPublisher{},
	}
	f.revocations = store.NewMemoryStore(store.WithClock(f.clock.Now))
	f.challenges = store.NewMemoryChallengeStore(store.WithClock(f.clock.Now))

	hash, err := bcrypt.GenerateFromPassword([]byte("pw123"), bcrypt.MinCost)
	require.NoError(t, err)
	f.alice = core.Identity{
		ID:          "alice-id",
		Username:    "alice",
		DisplayName: "Alice",
		Email:       "alice@example.com",
		Roles:       []string{"admin"},
	}
	f.directory = directory.NewMemoryDirectory(&core.UserRecord{Identity: f.alice, PasswordHash: string(hash)})

	f.tokenizer = tokenizer.NewJWTTokenizer(testSigningKey, tokenizer.WithIssuer("test"), tokenizer.WithClock(f.clock.Now))
	f.captcha = NewCaptchaService(f.challenges, stubRenderer{}, nil,
		WithCaptchaClock(f.clock.Now),
		WithCaptchaGenerators(f.ids.next, func(int) (string, error) { return f.answers.next(), nil }),
	)
	f.credentials, err = NewCredentialVerifier(f.directory, bcrypt.MinCost)
	require.NoError(t, err)
	f.tokens = NewTokenService(f.tokenizer, f.revocations, nil, WithTokenClock(f.clock.Now), WithTokenTTL(time.Hour))
	f.guard = NewGuard(f.tokens, nil)
	f.auth = NewAuthService(f.captcha, f.credentials, f.tokens, f.directory, f.events, nil, nil)
	f.users = NewUserService(f.directory, bcrypt.MinCost, nil)
	return f
}

// issueChallenge queues id and answer and issues a challenge with them
func (f *fixture) issueChallenge(t *testing.T, id, answer string) *CaptchaImage {
	t.Helper()
	f.ids.values = append(f.ids.values, id)
	f.answers.values = append(f.answers.values, answer)
	image, err := f.captcha.Issue(context.Background())
	require.NoError(t, err)
	return image
}
