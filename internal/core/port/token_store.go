package port

import (
	"context"

	"github.com/arklim/authgate/internal/core/domain"
)

// TokenStore persists refresh sessions and blacklisted tokens.
// Backend failures surface as repository.ErrStoreUnavailable.
type TokenStore interface {
	BlacklistToken(ctx context.Context, token string) (bool, error)
	IsBlacklisted(ctx context.Context, token string) (bool, error)
	CreateSession(ctx context.Context, session domain.RefreshSession) (bool, error)
	GetSession(ctx context.Context, key string) (string, bool, error)
}

// IPBlacklist tracks client addresses banned after rate-limit violations.
type IPBlacklist interface {
	IsBlacklisted(ctx context.Context, ip string) (bool, error)
	Add(ctx context.Context, ip string) error
}

// OAuthStateStore holds the anti-forgery state of pending OAuth redirects.
type OAuthStateStore interface {
	Save(ctx context.Context, state string) error
	Consume(ctx context.Context, state string) (bool, error)
}
