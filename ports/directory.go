package ports

import (
	"context"

	"github.com/layer-3/gatekeeper/core"
)

// UserDirectory stores and queries user records
type UserDirectory interface {
	// FindByUsername returns core.ErrUserNotFound when no user has that username.
	FindByUsername(ctx context.Context, username string) (*core.UserRecord, error)
	FindByID(ctx context.Context, id string) (*core.UserRecord, error)
	// Create returns core.ErrUsernameTaken for a duplicate username.
	Create(ctx context.Context, record *core.UserRecord) error
	List(ctx context.Context, query core.ListQuery) ([]core.Identity, int, error)
}
