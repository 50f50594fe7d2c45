package port

import (
	"time"

	"github.com/arklim/authgate/internal/core/domain"
)

// PasswordHasher hashes and verifies secrets using the configured algorithm.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password string, encoded string) (bool, error)
}

// TokenCodec signs and verifies session tokens.
type TokenCodec interface {
	Encode(payload domain.TokenPayload) (string, error)
	Decode(token string) (domain.TokenPayload, error)
}

// ResetTokenCodec issues and verifies short-lived password reset tokens bound to an email.
type ResetTokenCodec interface {
	Issue(email string) (string, time.Time, error)
	Verify(token string) (string, error)
}
