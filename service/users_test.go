package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/layer-3/gatekeeper/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserService_Register(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	profile, err := f.users.Register(ctx, f.alice, core.NewUser{Username: " bob ", Password: "hunter2"})
	require.NoError(t, err)
	assert.Equal(t, "bob", profile.Username)
	assert.Equal(t, "bob", profile.DisplayName)
	assert.NotEmpty(t, profile.ID)

	record, err := f.directory.FindByUsername(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, "alice-id", record.CreatedBy)
	assert.NotEqual(t, "hunter2", record.PasswordHash)

	identity, err := f.credentials.Verify(ctx, core.Credential{Username: "bob", Password: "hunter2"})
	require.NoError(t, err)
	assert.Equal(t, profile.ID, identity.ID)

	_, err = f.users.Register(ctx, f.alice, core.NewUser{Username: "bob", Password: "other"})
	assert.ErrorIs(t, err, core.ErrValidation)

	_, err = f.users.Register(ctx, f.alice, core.NewUser{Username: "  ", Password: "x"})
	assert.ErrorIs(t, err, core.ErrValidation)

	_, err = f.users.Register(ctx, f.alice, core.NewUser{Username: "carol"})
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestUserService_ListDefaults(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	for i := 0; i < 30; i++ {
		_, err := f.users.Register(ctx, f.alice, core.NewUser{Username: fmt.Sprintf("user%02d", i), Password: "pw"})
		require.NoError(t, err)
	}

	empty, err := f.users.List(ctx, f.alice, core.ListQuery{})
	require.NoError(t, err)
	explicit, err := f.users.List(ctx, f.alice, core.ListQuery{Page: 1, Limit: 20})
	require.NoError(t, err)

	assert.Equal(t, explicit, empty)
	assert.Equal(t, 1, empty.Page)
	assert.Equal(t, 20, empty.Limit)
	assert.Equal(t, 31, empty.Total)
	assert.Len(t, empty.Items, 20)

	last, err := f.users.List(ctx, f.alice, core.ListQuery{Page: 2, Limit: 20})
	require.NoError(t, err)
	assert.Len(t, last.Items, 11)

	_, err = NewUserService(brokenDirectory{}, 4, nil).List(ctx, f.alice, core.ListQuery{})
	assert.Error(t, err)
}
