package events

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/layer-3/gatekeeper/ports"
)

// Retry policy used when WithRetry is not given
const (
	DefaultMaxAttempts = 5
	DefaultRetryDelay  = time.Second
)

// RevocationConsumer applies logout events published by any instance to the local
// revocation store, keeping per-instance memory stores in step.
type RevocationConsumer struct {
	subscriber message.Subscriber
	store      ports.RevocationStore
	logger     *slog.Logger
	now        func() time.Time

	maxAttempts int
	retryDelay  time.Duration
	attempts    map[string]int // failed deliveries by message id
}

// ConsumerOption configures a RevocationConsumer
type ConsumerOption func(*RevocationConsumer)

// WithRetry sets how often a failing event is redelivered and how long to wait
// before each redelivery. After maxAttempts failures the event is dropped.
func WithRetry(maxAttempts int, delay time.Duration) ConsumerOption {
	return func(c *RevocationConsumer) {
		if maxAttempts > 0 {
			c.maxAttempts = maxAttempts
		}
		if delay >= 0 {
			c.retryDelay = delay
		}
	}
}

// NewRevocationConsumer creates a consumer reading LogoutTopic. logger may be nil.
func NewRevocationConsumer(subscriber message.Subscriber, store ports.RevocationStore, logger *slog.Logger, opts ...ConsumerOption) *RevocationConsumer {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	c := &RevocationConsumer{
		subscriber:  subscriber,
		store:       store,
		logger:      logger,
		now:         time.Now,
		maxAttempts: DefaultMaxAttempts,
		retryDelay:  DefaultRetryDelay,
		attempts:    make(map[string]int),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Run consumes events until ctx is cancelled or the subscription closes
func (c *RevocationConsumer) Run(ctx context.Context) error {
	messages, err := c.subscriber.Subscribe(ctx, LogoutTopic)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", LogoutTopic, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			if err := c.handle(ctx, msg); err != nil {
				c.retry(ctx, msg, err)
				continue
			}
			delete(c.attempts, msg.UUID)
			msg.Ack()
		}
	}
}

// retry nacks msg after the retry delay, or acks it once it has failed maxAttempts times
func (c *RevocationConsumer) retry(ctx context.Context, msg *message.Message, err error) {
	c.attempts[msg.UUID]++
	attempt := c.attempts[msg.UUID]

	if attempt >= c.maxAttempts {
		delete(c.attempts, msg.UUID)
		c.logger.ErrorContext(ctx, "giving up on logout event", "message_id", msg.UUID, "attempts", attempt, "error", err)
		msg.Ack()
		return
	}

	c.logger.WarnContext(ctx, "failed to apply logout event", "message_id", msg.UUID, "attempt", attempt, "error", err)

	timer := time.NewTimer(c.retryDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
	msg.Nack()
}

func (c *RevocationConsumer) handle(ctx context.Context, msg *message.Message) error {
	var event LogoutEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		// A payload that cannot be decoded will never succeed; drop it
		c.logger.WarnContext(ctx, "dropping malformed logout event", "message_id", msg.UUID, "error", err)
		return nil
	}
	if event.TokenKey == "" {
		return nil
	}

	remaining := event.ExpiresAt.Sub(c.now())
	if remaining <= 0 {
		return nil
	}

	return c.store.Revoke(ctx, event.TokenKey, remaining)
}
