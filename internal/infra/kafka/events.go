package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/arklim/authgate/internal/core/domain"
	"github.com/arklim/authgate/internal/core/port"
	"github.com/arklim/authgate/internal/infra/config"
)

const schemaVersion = "1.0"

const (
	EventPasswordResetRequested = "notification.password.reset_requested"
	EventPasswordChanged        = "notification.password.changed"
	EventUserLoggedOut          = "auth.user.logged_out"
)

// EventPublisher implements port.EventPublisher using Kafka.
type EventPublisher struct {
	producer *Producer
	appCfg   config.AppSettings
}

// NewEventPublisher constructs a Kafka-backed event publisher.
func NewEventPublisher(producer *Producer, appCfg config.AppSettings) *EventPublisher {
	return &EventPublisher{producer: producer, appCfg: appCfg}
}

type eventEnvelope struct {
	EventID   string            `json:"event_id"`
	EventType string            `json:"event_type"`
	UserID    string            `json:"user_id,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Version   string            `json:"version"`
	Payload   any               `json:"payload"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

func (p *EventPublisher) publish(ctx context.Context, eventID, eventType, userID string, ts time.Time, payload any) error {
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	if eventID == "" {
		eventID = uuid.NewString()
	}

	metadata := map[string]string{
		"service":     p.appCfg.Name,
		"environment": p.appCfg.Env,
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		metadata["trace_id"] = sc.TraceID().String()
	}

	bytes, err := json.Marshal(eventEnvelope{
		EventID:   eventID,
		EventType: eventType,
		UserID:    userID,
		Timestamp: ts.UTC(),
		Version:   schemaVersion,
		Payload:   payload,
		Metadata:  metadata,
	})
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: p.producer.TopicName(eventType),
		Key:   sarama.StringEncoder(userID),
		Value: sarama.ByteEncoder(bytes),
	}

	select {
	case p.producer.producer.Input() <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PublishPasswordResetRequested asks the notification service to send the reset email.
func (p *EventPublisher) PublishPasswordResetRequested(ctx context.Context, event domain.PasswordResetRequestedEvent) error {
	payload := struct {
		UserID      string    `json:"user_id"`
		Username    string    `json:"username"`
		Email       string    `json:"email"`
		Token       string    `json:"token"`
		RequestedAt time.Time `json:"requested_at"`
		ExpiresAt   time.Time `json:"expires_at"`
	}{
		UserID:      event.UserID,
		Username:    event.Username,
		Email:       event.Email,
		Token:       event.Token,
		RequestedAt: event.RequestedAt.UTC(),
		ExpiresAt:   event.ExpiresAt.UTC(),
	}

	return p.publish(ctx, event.EventID, EventPasswordResetRequested, event.UserID, event.RequestedAt, payload)
}

// PublishPasswordChanged asks the notification service to confirm the password update.
func (p *EventPublisher) PublishPasswordChanged(ctx context.Context, event domain.PasswordChangedEvent) error {
	payload := struct {
		UserID    string    `json:"user_id"`
		Username  string    `json:"username"`
		Email     string    `json:"email"`
		ChangedAt time.Time `json:"changed_at"`
	}{
		UserID:    event.UserID,
		Username:  event.Username,
		Email:     event.Email,
		ChangedAt: event.ChangedAt.UTC(),
	}

	return p.publish(ctx, event.EventID, EventPasswordChanged, event.UserID, event.ChangedAt, payload)
}

// PublishUserLoggedOut records a logout for downstream audit consumers.
func (p *EventPublisher) PublishUserLoggedOut(ctx context.Context, event domain.UserLoggedOutEvent) error {
	payload := struct {
		UserID      string    `json:"user_id"`
		TokenID     string    `json:"token_id"`
		LoggedOutAt time.Time `json:"logged_out_at"`
	}{
		UserID:      event.UserID,
		TokenID:     event.TokenID,
		LoggedOutAt: event.LoggedOutAt.UTC(),
	}

	return p.publish(ctx, event.EventID, EventUserLoggedOut, event.UserID, event.LoggedOutAt, payload)
}

var _ port.EventPublisher = (*EventPublisher)(nil)
