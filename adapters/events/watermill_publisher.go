package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

// LogoutTopic carries token revocations between instances
const LogoutTopic = "gatekeeper.logout"

// LogoutEvent represents a logout event
type LogoutEvent struct {
	Subject   string    `json:"subject,omitempty"`
	TokenKey  string    `json:"token_key"`
	ExpiresAt time.Time `json:"expires_at"`
}

// WatermillPublisher implements the EventPublisher interface using Watermill
type WatermillPublisher struct {
	publisher message.Publisher
	topic     string
	now       func() time.Time
}

// NewWatermillPublisher creates a new Watermill publisher
func NewWatermillPublisher(publisher message.Publisher) *WatermillPublisher {
	return &WatermillPublisher{
		publisher: publisher,
		topic:     LogoutTopic,
		now:       time.Now,
	}
}

// PublishLogout publishes a logout event
func (p *WatermillPublisher) PublishLogout(ctx context.Context, subject string, tokenKey string, expiry time.Duration) error {
	event := LogoutEvent{
		Subject:   subject,
		TokenKey:  tokenKey,
		ExpiresAt: p.now().Add(expiry),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)

	if err := p.publisher.Publish(p.topic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}
