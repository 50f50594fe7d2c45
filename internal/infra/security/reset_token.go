package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/arklim/authgate/internal/core/port"
)

// resetAudience keeps reset tokens and session tokens from being accepted in place of each other.
const resetAudience = "password_reset"

// ResetTokenCodec issues and verifies password-reset tokens whose subject is the account email.
type ResetTokenCodec struct {
	secret []byte
	method jwt.SigningMethod
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewResetTokenCodec reuses the session signing secret with the server URL as issuer.
func NewResetTokenCodec(cfg JWTConfig, ttl time.Duration) (*ResetTokenCodec, error) {
	method, err := hmacMethod(cfg.Algorithm)
	if err != nil {
		return nil, err
	}
	if cfg.SecretKey == "" {
		return nil, errors.New("jwt: secret key is required")
	}
	return &ResetTokenCodec{
		secret: []byte(cfg.SecretKey),
		method: method,
		issuer: cfg.Issuer,
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// WithClock overrides issuing and verification time.
func (c *ResetTokenCodec) WithClock(now func() time.Time) *ResetTokenCodec {
	if now != nil {
		c.now = now
	}
	return c
}

// TTL returns the lifetime of issued tokens.
func (c *ResetTokenCodec) TTL() time.Duration {
	return c.ttl
}

// Issue signs a reset token for the email.
func (c *ResetTokenCodec) Issue(email string) (string, time.Time, error) {
	now := c.now()
	expires := now.Add(c.ttl)
	claims := jwt.RegisteredClaims{
		Issuer:    c.issuer,
		Subject:   email,
		Audience:  jwt.ClaimStrings{resetAudience},
		ExpiresAt: jwt.NewNumericDate(expires),
		NotBefore: jwt.NewNumericDate(now),
	}
	signed, err := jwt.NewWithClaims(c.method, claims).SignedString(c.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%w: %w", ErrEncoding, err)
	}
	return signed, expires, nil
}

// Verify returns the email carried by a valid reset token.
func (c *ResetTokenCodec) Verify(token string) (string, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{c.method.Alg()}),
		jwt.WithIssuer(c.issuer),
		jwt.WithAudience(resetAudience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return "", classify(err)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return claims.Subject, nil
}

var _ port.ResetTokenCodec = (*ResetTokenCodec)(nil)
