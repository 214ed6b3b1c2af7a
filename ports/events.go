package ports

import (
	"context"
	"time"
)

// EventPublisher publishes events to notify other instances
type EventPublisher interface {
	PublishLogout(ctx context.Context, subject string, tokenKey string, expiry time.Duration) error
}
