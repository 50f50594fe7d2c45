package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/arklim/authgate/internal/core/port"
)

// OAuthStateRepository holds single-use OAuth state values.
type OAuthStateRepository struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewOAuthStateRepository constructs the repository.
func NewOAuthStateRepository(client *redis.Client, prefix string, ttl time.Duration) *OAuthStateRepository {
	return &OAuthStateRepository{client: client, prefix: prefix, ttl: ttl}
}

// Save records a freshly generated state.
func (r *OAuthStateRepository) Save(ctx context.Context, state string) error {
	if err := r.client.Set(ctx, r.key(state), "1", r.ttl).Err(); err != nil {
		return storeError("save oauth state", err)
	}
	return nil
}

// Consume deletes the state and reports whether it existed.
func (r *OAuthStateRepository) Consume(ctx context.Context, state string) (bool, error) {
	n, err := r.client.Del(ctx, r.key(state)).Result()
	if err != nil {
		return false, storeError("consume oauth state", err)
	}
	return n > 0, nil
}

func (r *OAuthStateRepository) key(state string) string {
	return fmt.Sprintf("%s:%s", r.prefix, state)
}

var _ port.OAuthStateStore = (*OAuthStateRepository)(nil)
