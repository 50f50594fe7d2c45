package kafka

import (
	"context"

	"go.uber.org/zap"

	"github.com/arklim/authgate/internal/core/domain"
	"github.com/arklim/authgate/internal/core/port"
	"github.com/arklim/authgate/internal/infra/logger"
)

// StubPublisher logs events instead of sending them to Kafka. Used when kafka.enabled is false.
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher constructs a development-friendly event publisher.
func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	return &StubPublisher{logger: logger}
}

// PublishPasswordResetRequested logs the request without the token.
func (p *StubPublisher) PublishPasswordResetRequested(_ context.Context, event domain.PasswordResetRequestedEvent) error {
	p.logger.Info("Stub event published",
		zap.String("event_type", EventPasswordResetRequested),
		zap.String("user_id", event.UserID),
		logger.Email(event.Email),
		zap.Time("expires_at", event.ExpiresAt),
	)
	return nil
}

// PublishPasswordChanged logs the password change.
func (p *StubPublisher) PublishPasswordChanged(_ context.Context, event domain.PasswordChangedEvent) error {
	p.logger.Info("Stub event published",
		zap.String("event_type", EventPasswordChanged),
		zap.String("user_id", event.UserID),
		logger.Email(event.Email),
	)
	return nil
}

// PublishUserLoggedOut logs the logout.
func (p *StubPublisher) PublishUserLoggedOut(_ context.Context, event domain.UserLoggedOutEvent) error {
	p.logger.Info("Stub event published",
		zap.String("event_type", EventUserLoggedOut),
		zap.String("user_id", event.UserID),
		zap.String("token_id", event.TokenID),
	)
	return nil
}

var _ port.EventPublisher = (*StubPublisher)(nil)
