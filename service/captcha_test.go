package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/layer-3/gatekeeper/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCaptchaService_Issue(t *testing.T) {
	f := newFixture(t)

	image := f.issueChallenge(t, "c1", "7gK2")
	assert.Equal(t, "c1", image.ID)
	assert.Equal(t, "data:image/png;base64,stub-7gK2", image.Image)
}

func TestCaptchaService_Verify(t *testing.T) {
	ctx := context.Background()

	t.Run("correct answer succeeds once", func(t *testing.T) {
		f := newFixture(t)
		f.issueChallenge(t, "c1", "7gK2")

		require.NoError(t, f.captcha.Verify(ctx, "c1", "7gK2"))
		assert.ErrorIs(t, f.captcha.Verify(ctx, "c1", "7gK2"), core.ErrChallengeNotFound)
	})

	t.Run("wrong answer consumes the challenge", func(t *testing.T) {
		f := newFixture(t)
		f.issueChallenge(t, "c1", "7gK2")

		err := f.captcha.Verify(ctx, "c1", "nope")
		assert.ErrorIs(t, err, core.ErrCaptchaInvalid)
		assert.False(t, errors.Is(err, core.ErrChallengeNotFound))

		assert.ErrorIs(t, f.captcha.Verify(ctx, "c1", "7gK2"), core.ErrChallengeNotFound)
	})

	t.Run("comparison ignores case", func(t *testing.T) {
		f := newFixture(t)
		f.issueChallenge(t, "lower", "7gK2")
		f.issueChallenge(t, "upper", "7gK2")

		assert.NoError(t, f.captcha.Verify(ctx, "lower", "7gk2"))
		assert.NoError(t, f.captcha.Verify(ctx, "upper", "7GK2"))
	})

	t.Run("expired challenge looks like an unknown one", func(t *testing.T) {
		f := newFixture(t)
		f.issueChallenge(t, "c1", "7gK2")
		f.clock.Advance(DefaultCaptchaTTL)

		assert.ErrorIs(t, f.captcha.Verify(ctx, "c1", "7gK2"), core.ErrChallengeNotFound)
	})

	t.Run("unknown and empty ids", func(t *testing.T) {
		f := newFixture(t)
		assert.ErrorIs(t, f.captcha.Verify(ctx, "missing", "x"), core.ErrChallengeNotFound)
		assert.ErrorIs(t, f.captcha.Verify(ctx, "", "x"), core.ErrChallengeNotFound)
	})
}

func TestCaptchaService_ConcurrentVerify(t *testing.T) {
	f := newFixture(t)
	f.issueChallenge(t, "c1", "7gK2")

	var successes atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if f.captcha.Verify(context.Background(), "c1", "7gK2") == nil {
				successes.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), successes.Load())
}

func TestRandomAnswer(t *testing.T) {
	for _, length := range []int{4, 5, 6} {
		answer, err := randomAnswer(length)
		require.NoError(t, err)
		assert.Len(t, answer, length)
		for _, r := range answer {
			assert.True(t, strings.ContainsRune(captchaAlphabet, r), "unexpected rune %q", r)
		}
	}
}

func TestCaptchaService_Defaults(t *testing.T) {
	s := NewCaptchaService(nil, stubRenderer{}, nil, WithCaptchaTTL(time.Minute), WithCaptchaLength(6))
	assert.Equal(t, time.Minute, s.ttl)
	assert.Equal(t, 6, s.length)
}
