package core

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestErrorClasses(t *testing.T) {
	for _, err := range []error{ErrTokenMalformed, ErrTokenExpired, ErrTokenRevoked} {
		assert.ErrorIs(t, err, ErrUnauthorized)
		assert.False(t, errors.Is(err, ErrInvalidCredentials))
	}
	assert.ErrorIs(t, ErrChallengeNotFound, ErrCaptchaInvalid)
	assert.ErrorIs(t, ErrUsernameTaken, ErrValidation)
	assert.False(t, errors.Is(ErrCaptchaInvalid, ErrChallengeNotFound))
}

func TestListQueryNormalize(t *testing.T) {
	t.Run("empty query equals explicit defaults", func(t *testing.T) {
		assert.Equal(t, ListQuery{Page: 1, Limit: 20}.Normalize(), ListQuery{}.Normalize())
	})

	t.Run("negative values fall back to defaults", func(t *testing.T) {
		q := ListQuery{Page: -3, Limit: -1}.Normalize()
		assert.Equal(t, DefaultPage, q.Page)
		assert.Equal(t, DefaultLimit, q.Limit)
	})

	t.Run("limit is capped", func(t *testing.T) {
		assert.Equal(t, MaxLimit, ListQuery{Limit: 5000}.Normalize().Limit)
	})

	t.Run("huge page does not overflow offset", func(t *testing.T) {
		q := ListQuery{Page: math.MaxInt / 10, Limit: 20}.Normalize()
		assert.Equal(t, MaxPage, q.Page)
		assert.GreaterOrEqual(t, q.Offset(), 0)

		q = ListQuery{Page: math.MaxInt, Limit: MaxLimit}.Normalize()
		assert.GreaterOrEqual(t, q.Offset(), 0)
	})

	t.Run("offset", func(t *testing.T) {
		assert.Equal(t, 40, ListQuery{Page: 3, Limit: 20}.Offset())
	})
}

func TestChallengeExpired(t *testing.T) {
	now := time.Now()
	c := &Challenge{ExpiresAt: now.Add(time.Minute)}
	assert.False(t, c.Expired(now))
	assert.True(t, c.Expired(now.Add(time.Minute)))
}

func TestProfileOf(t *testing.T) {
	p := ProfileOf(Identity{ID: "u1", Username: "alice"})
	assert.Equal(t, "u1", p.ID)
	assert.NotNil(t, p.Roles)
	assert.Equal(t, "public", AccessPublic.String())
	assert.Equal(t, "token-required", Access(0).String())
}
