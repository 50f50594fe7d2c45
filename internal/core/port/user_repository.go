package port

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/arklim/authgate/internal/core/domain"
)

// UserRepository exposes persistence behavior for users.
type UserRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string, changedAt time.Time) error
}
