package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/arklim/authgate/internal/core/domain"
	"github.com/arklim/authgate/internal/core/port"
)

const blacklistedValue = "true"

// TokenStoreConfig configures key namespaces and lifetimes of the token store.
type TokenStoreConfig struct {
	BlacklistPrefix string
	// BlacklistTTL must outlive the access token it bans.
	BlacklistTTL time.Duration
	SessionTTL   time.Duration
}

// TokenStore keeps refresh sessions keyed by refresh token and blacklisted tokens under a prefix.
type TokenStore struct {
	client *redis.Client
	cfg    TokenStoreConfig
}

// NewTokenStore constructs a store over the shared client.
func NewTokenStore(client *redis.Client, cfg TokenStoreConfig) *TokenStore {
	return &TokenStore{client: client, cfg: cfg}
}

// BlacklistToken marks the token as revoked. It reports whether the backend acknowledged the write.
func (s *TokenStore) BlacklistToken(ctx context.Context, token string) (bool, error) {
	res, err := s.client.Set(ctx, s.blacklistKey(token), blacklistedValue, s.cfg.BlacklistTTL).Result()
	if err != nil {
		return false, storeError("blacklist token", err)
	}
	return res == "OK", nil
}

// IsBlacklisted reports whether the token has been revoked.
func (s *TokenStore) IsBlacklisted(ctx context.Context, token string) (bool, error) {
	n, err := s.client.Exists(ctx, s.blacklistKey(token)).Result()
	if err != nil {
		return false, storeError("check token blacklist", err)
	}
	return n > 0, nil
}

// CreateSession stores "<user_id>:<client_ip>" under the refresh token.
func (s *TokenStore) CreateSession(ctx context.Context, session domain.RefreshSession) (bool, error) {
	ttl := session.TTL
	if ttl <= 0 {
		ttl = s.cfg.SessionTTL
	}
	res, err := s.client.Set(ctx, session.Key, session.UserInfo, ttl).Result()
	if err != nil {
		return false, storeError("create session", err)
	}
	return res == "OK", nil
}

// GetSession returns the stored session value and whether it exists.
func (s *TokenStore) GetSession(ctx context.Context, key string) (string, bool, error) {
	value, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, storeError("get session", err)
	}
	return value, true, nil
}

func (s *TokenStore) blacklistKey(token string) string {
	return fmt.Sprintf("%s:%s", s.cfg.BlacklistPrefix, token)
}

var _ port.TokenStore = (*TokenStore)(nil)
