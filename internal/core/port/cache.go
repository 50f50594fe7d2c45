package port

import (
	"context"

	"github.com/google/uuid"

	"github.com/arklim/authgate/internal/core/domain"
)

// IdentityCache keeps recently resolved identities close to the request path.
// Get returns (nil, nil) on a miss.
type IdentityCache interface {
	Get(ctx context.Context, id uuid.UUID) (*domain.Identity, error)
	Set(ctx context.Context, identity domain.Identity) error
}
