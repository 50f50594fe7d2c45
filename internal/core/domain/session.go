package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// RefreshSession is the record stored for every issued refresh token.
// Key is the refresh token itself and UserInfo is "<user_id>:<client_ip>".
type RefreshSession struct {
	Key      string
	UserInfo string
	TTL      time.Duration
}

// NewRefreshSession builds the record for a freshly issued refresh token.
func NewRefreshSession(refreshToken string, userID uuid.UUID, clientIP string, ttl time.Duration) RefreshSession {
	return RefreshSession{
		Key:      refreshToken,
		UserInfo: fmt.Sprintf("%s:%s", userID, clientIP),
		TTL:      ttl,
	}
}

// ParseUserInfo splits a stored session value into user id and client ip.
// The ip part may itself contain colons (IPv6).
func ParseUserInfo(value string) (uuid.UUID, string, error) {
	idPart, ip, ok := strings.Cut(value, ":")
	if !ok {
		return uuid.Nil, "", fmt.Errorf("malformed session value %q", value)
	}
	id, err := uuid.Parse(idPart)
	if err != nil {
		return uuid.Nil, "", fmt.Errorf("parse session user id: %w", err)
	}
	return id, ip, nil
}
