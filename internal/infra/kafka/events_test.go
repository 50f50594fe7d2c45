package kafka

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap/zaptest"

	"github.com/arklim/authgate/internal/core/domain"
	"github.com/arklim/authgate/internal/infra/config"
)

type fakeAsyncProducer struct {
	input  chan *sarama.ProducerMessage
	errors chan *sarama.ProducerError
}

func newFakeAsyncProducer() *fakeAsyncProducer {
	return &fakeAsyncProducer{
		input:  make(chan *sarama.ProducerMessage, 1),
		errors: make(chan *sarama.ProducerError, 1),
	}
}

func (f *fakeAsyncProducer) AsyncClose() {}

func (f *fakeAsyncProducer) Close() error { return nil }

func (f *fakeAsyncProducer) Input() chan<- *sarama.ProducerMessage { return f.input }

func (f *fakeAsyncProducer) Successes() <-chan *sarama.ProducerMessage { return nil }

func (f *fakeAsyncProducer) Errors() <-chan *sarama.ProducerError { return f.errors }

func (f *fakeAsyncProducer) IsTransactional() bool { return false }

func (f *fakeAsyncProducer) BeginTxn() error { return nil }

func (f *fakeAsyncProducer) CommitTxn() error { return nil }

func (f *fakeAsyncProducer) AbortTxn() error { return nil }

func (f *fakeAsyncProducer) AddOffsetsToTxn(offsets map[string][]*sarama.PartitionOffsetMetadata, groupID string) error {
	return nil
}

func (f *fakeAsyncProducer) AddMessageToTxn(msg *sarama.ConsumerMessage, groupID string, metadata *string) error {
	return nil
}

func (f *fakeAsyncProducer) TxnStatus() sarama.ProducerTxnStatusFlag {
	return sarama.ProducerTxnStatusFlag(0)
}

func newTestPublisher(t *testing.T) (*EventPublisher, *fakeAsyncProducer) {
	t.Helper()
	asyncProducer := newFakeAsyncProducer()
	producer := newProducer(asyncProducer, config.KafkaSettings{TopicPrefix: "authgate"}, zaptest.NewLogger(t))
	t.Cleanup(func() { _ = producer.Close() })

	return NewEventPublisher(producer, config.AppSettings{Name: "authgate", Env: "test"}), asyncProducer
}

func receiveEnvelope(t *testing.T, producer *fakeAsyncProducer) (*sarama.ProducerMessage, map[string]any) {
	t.Helper()
	select {
	case msg := <-producer.input:
		bytes, err := msg.Value.Encode()
		if err != nil {
			t.Fatalf("Value.Encode returned error: %v", err)
		}
		var envelope map[string]any
		if err := json.Unmarshal(bytes, &envelope); err != nil {
			t.Fatalf("failed to unmarshal envelope: %v", err)
		}
		return msg, envelope
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message on async producer input channel")
	}
	return nil, nil
}

func TestPublishPasswordResetRequested(t *testing.T) {
	publisher, asyncProducer := newTestPublisher(t)

	requestedAt := time.Date(2025, 10, 31, 12, 0, 0, 0, time.UTC)
	event := domain.PasswordResetRequestedEvent{
		EventID:     "event-123",
		UserID:      "user-789",
		Username:    "alice",
		Email:       "alice@example.com",
		Token:       "reset-token",
		RequestedAt: requestedAt,
		ExpiresAt:   requestedAt.Add(time.Hour),
	}

	if err := publisher.PublishPasswordResetRequested(context.Background(), event); err != nil {
		t.Fatalf("PublishPasswordResetRequested returned error: %v", err)
	}

	msg, envelope := receiveEnvelope(t, asyncProducer)
	if msg.Topic != "authgate.notification.password.reset_requested" {
		t.Fatalf("unexpected topic: %s", msg.Topic)
	}
	key, _ := msg.Key.Encode()
	if string(key) != "user-789" {
		t.Fatalf("unexpected key: %s", key)
	}
	if envelope["event_id"] != "event-123" || envelope["event_type"] != EventPasswordResetRequested {
		t.Fatalf("unexpected envelope: %v", envelope)
	}
	if envelope["timestamp"] != requestedAt.Format(time.RFC3339Nano) {
		t.Fatalf("unexpected timestamp: %v", envelope["timestamp"])
	}

	payload, ok := envelope["payload"].(map[string]any)
	if !ok {
		t.Fatalf("payload not a map: %T", envelope["payload"])
	}
	if payload["email"] != "alice@example.com" || payload["token"] != "reset-token" {
		t.Fatalf("unexpected payload: %v", payload)
	}

	metadata, ok := envelope["metadata"].(map[string]any)
	if !ok {
		t.Fatalf("envelope metadata not a map: %T", envelope["metadata"])
	}
	if metadata["service"] != "authgate" || metadata["environment"] != "test" {
		t.Fatalf("unexpected metadata: %v", metadata)
	}
}

func TestPublishPasswordChangedAndLogout(t *testing.T) {
	publisher, asyncProducer := newTestPublisher(t)

	if err := publisher.PublishPasswordChanged(context.Background(), domain.PasswordChangedEvent{
		UserID: "user-1",
		Email:  "bob@example.com",
	}); err != nil {
		t.Fatalf("PublishPasswordChanged returned error: %v", err)
	}
	msg, envelope := receiveEnvelope(t, asyncProducer)
	if msg.Topic != "authgate.notification.password.changed" {
		t.Fatalf("unexpected topic: %s", msg.Topic)
	}
	if id, _ := envelope["event_id"].(string); id == "" {
		t.Fatal("expected generated event id")
	}

	if err := publisher.PublishUserLoggedOut(context.Background(), domain.UserLoggedOutEvent{
		UserID:      "user-1",
		TokenID:     "jti-1",
		LoggedOutAt: time.Now(),
	}); err != nil {
		t.Fatalf("PublishUserLoggedOut returned error: %v", err)
	}
	msg, envelope = receiveEnvelope(t, asyncProducer)
	if msg.Topic != "authgate.auth.user.logged_out" {
		t.Fatalf("unexpected topic: %s", msg.Topic)
	}
	payload := envelope["payload"].(map[string]any)
	if payload["token_id"] != "jti-1" {
		t.Fatalf("unexpected payload: %v", payload)
	}
}

func TestPublishHonoursContextCancellation(t *testing.T) {
	publisher, asyncProducer := newTestPublisher(t)
	asyncProducer.input <- &sarama.ProducerMessage{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := publisher.PublishUserLoggedOut(ctx, domain.UserLoggedOutEvent{UserID: "u"}); err == nil {
		t.Fatal("expected context error when input is blocked")
	}
}

func TestTopicName(t *testing.T) {
	p := &Producer{cfg: config.KafkaSettings{TopicPrefix: "authgate"}}
	if got := p.TopicName("authgate.x"); got != "authgate.x" {
		t.Fatalf("expected prefix not duplicated, got %s", got)
	}
	p.cfg.TopicPrefix = ""
	if got := p.TopicName("x"); got != "x" {
		t.Fatalf("expected bare topic, got %s", got)
	}
}
