package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/arklim/authgate/internal/core/domain"
	"github.com/arklim/authgate/internal/core/port"
)

// IdentityCacheRepository stores resolved identities as JSON with a short TTL.
type IdentityCacheRepository struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewIdentityCacheRepository constructs the cache.
func NewIdentityCacheRepository(client *redis.Client, prefix string, ttl time.Duration) *IdentityCacheRepository {
	return &IdentityCacheRepository{client: client, prefix: prefix, ttl: ttl}
}

// Get returns the cached identity or nil on a miss.
func (r *IdentityCacheRepository) Get(ctx context.Context, id uuid.UUID) (*domain.Identity, error) {
	raw, err := r.client.Get(ctx, r.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, storeError("get identity", err)
	}

	var identity domain.Identity
	if err := json.Unmarshal(raw, &identity); err != nil {
		return nil, fmt.Errorf("decode cached identity: %w", err)
	}
	return &identity, nil
}

// Set caches the identity for the configured TTL.
func (r *IdentityCacheRepository) Set(ctx context.Context, identity domain.Identity) error {
	raw, err := json.Marshal(identity)
	if err != nil {
		return fmt.Errorf("encode identity: %w", err)
	}
	if err := r.client.Set(ctx, r.key(identity.ID), raw, r.ttl).Err(); err != nil {
		return storeError("set identity", err)
	}
	return nil
}

func (r *IdentityCacheRepository) key(id uuid.UUID) string {
	return fmt.Sprintf("%s:%s", r.prefix, id)
}

var _ port.IdentityCache = (*IdentityCacheRepository)(nil)
