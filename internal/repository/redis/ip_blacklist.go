package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/arklim/authgate/internal/core/port"
)

// IPBlacklistRepository bans client addresses for a fixed duration. Entries only expire.
type IPBlacklistRepository struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	now    func() time.Time
}

// NewIPBlacklistRepository constructs the repository.
func NewIPBlacklistRepository(client *redis.Client, prefix string, ttl time.Duration) *IPBlacklistRepository {
	return &IPBlacklistRepository{client: client, prefix: prefix, ttl: ttl, now: time.Now}
}

// IsBlacklisted reports whether the address is currently banned.
func (r *IPBlacklistRepository) IsBlacklisted(ctx context.Context, ip string) (bool, error) {
	n, err := r.client.Exists(ctx, r.key(ip)).Result()
	if err != nil {
		return false, storeError("check ip blacklist", err)
	}
	return n > 0, nil
}

// Add bans the address, recording when the ban started.
func (r *IPBlacklistRepository) Add(ctx context.Context, ip string) error {
	value := "Blacklisted at " + r.now().UTC().Format(time.RFC3339)
	if err := r.client.Set(ctx, r.key(ip), value, r.ttl).Err(); err != nil {
		return storeError("blacklist ip", err)
	}
	return nil
}

func (r *IPBlacklistRepository) key(ip string) string {
	return fmt.Sprintf("%s:%s", r.prefix, ip)
}

var _ port.IPBlacklist = (*IPBlacklistRepository)(nil)
