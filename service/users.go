package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/layer-3/gatekeeper/core"
	"github.com/layer-3/gatekeeper/ports"
)

// UserService registers and lists users on behalf of an authenticated actor
type UserService struct {
	directory  ports.UserDirectory
	bcryptCost int
	logger     *slog.Logger
	clock      func() time.Time
}

// NewUserService creates a user service hashing passwords at bcryptCost
func NewUserService(directory ports.UserDirectory, bcryptCost int, logger *slog.Logger) *UserService {
	return &UserService{
		directory:  directory,
		bcryptCost: bcryptCost,
		logger:     orDiscard(logger),
		clock:      time.Now,
	}
}

// Register creates a user. The actor is recorded as the creator.
func (s *UserService) Register(ctx context.Context, actor core.Identity, user core.NewUser) (core.Profile, error) {
	user.Username = strings.TrimSpace(user.Username)
	if user.Username == "" {
		return core.Profile{}, fmt.Errorf("username is empty: %w", core.ErrValidation)
	}

	hash, err := HashPassword(user.Password, s.bcryptCost)
	if err != nil {
		return core.Profile{}, err
	}

	displayName := user.DisplayName
	if displayName == "" {
		displayName = user.Username
	}

	record := &core.UserRecord{
		Identity: core.Identity{
			ID:          uuid.NewString(),
			Username:    user.Username,
			DisplayName: displayName,
			Email:       user.Email,
			Roles:       user.Roles,
		},
		PasswordHash: hash,
		CreatedBy:    actor.ID,
		CreatedAt:    s.clock(),
	}

	if err := s.directory.Create(ctx, record); err != nil {
		return core.Profile{}, err
	}

	s.logger.InfoContext(ctx, "user registered", "user_id", record.ID, "created_by", actor.ID)
	return core.ProfileOf(record.Identity), nil
}

// List returns one page of users. Missing or non-positive page and limit fall back to
// page 1 and limit 20.
func (s *UserService) List(ctx context.Context, actor core.Identity, query core.ListQuery) (core.Page, error) {
	query = query.Normalize()

	identities, total, err := s.directory.List(ctx, query)
	if err != nil {
		return core.Page{}, fmt.Errorf("failed to list users: %w", err)
	}

	items := make([]core.Profile, 0, len(identities))
	for _, identity := range identities {
		items = append(items, core.ProfileOf(identity))
	}

	return core.Page{
		Items: items,
		Total: total,
		Page:  query.Page,
		Limit: query.Limit,
	}, nil
}
