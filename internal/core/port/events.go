package port

import (
	"context"

	"github.com/arklim/authgate/internal/core/domain"
)

// EventPublisher hands notification events to the message bus. Delivery is fire-and-forget.
type EventPublisher interface {
	PublishPasswordResetRequested(ctx context.Context, event domain.PasswordResetRequestedEvent) error
	PublishPasswordChanged(ctx context.Context, event domain.PasswordChangedEvent) error
	PublishUserLoggedOut(ctx context.Context, event domain.UserLoggedOutEvent) error
}
