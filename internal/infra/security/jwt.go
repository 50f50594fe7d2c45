package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/arklim/authgate/internal/core/domain"
	"github.com/arklim/authgate/internal/core/port"
)

var (
	// ErrEncoding indicates a payload could not be signed.
	ErrEncoding = errors.New("jwt: encoding failed")
	// ErrTokenExpired indicates exp is in the past beyond the leeway.
	ErrTokenExpired = errors.New("jwt: token expired")
	// ErrBadSignature indicates the signature does not match the secret.
	ErrBadSignature = errors.New("jwt: bad signature")
	// ErrClaims indicates an issuer or audience mismatch.
	ErrClaims = errors.New("jwt: invalid claims")
	// ErrInvalidToken covers malformed tokens and every other verification failure.
	ErrInvalidToken = errors.New("jwt: invalid token")
)

// DefaultLeeway absorbs clock skew between services.
const DefaultLeeway = 60 * time.Second

// JWTConfig configures signing and verification of session tokens.
type JWTConfig struct {
	SecretKey string
	Algorithm string
	Issuer    string
	Audience  string
	Leeway    time.Duration
}

// JWTCodec signs and verifies session tokens with a shared HMAC secret.
type JWTCodec struct {
	secret   []byte
	method   jwt.SigningMethod
	issuer   string
	audience string
	leeway   time.Duration
	now      func() time.Time
}

// NewJWTCodec validates the configuration and returns a codec.
func NewJWTCodec(cfg JWTConfig) (*JWTCodec, error) {
	method, err := hmacMethod(cfg.Algorithm)
	if err != nil {
		return nil, err
	}
	if cfg.SecretKey == "" {
		return nil, errors.New("jwt: secret key is required")
	}
	leeway := cfg.Leeway
	if leeway <= 0 {
		leeway = DefaultLeeway
	}
	return &JWTCodec{
		secret:   []byte(cfg.SecretKey),
		method:   method,
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		leeway:   leeway,
		now:      time.Now,
	}, nil
}

// WithClock overrides the verification clock.
func (c *JWTCodec) WithClock(now func() time.Time) *JWTCodec {
	if now != nil {
		c.now = now
	}
	return c
}

// Encode signs the payload.
func (c *JWTCodec) Encode(payload domain.TokenPayload) (string, error) {
	if err := payload.Validate(); err != nil {
		return "", fmt.Errorf("%w: %w", ErrEncoding, err)
	}
	signed, err := jwt.NewWithClaims(c.method, sessionClaims{payload}).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrEncoding, err)
	}
	return signed, nil
}

// Decode verifies signature, expiry, not-before, issuer and audience, then
// validates the subject before returning the payload.
func (c *JWTCodec) Decode(token string) (domain.TokenPayload, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{c.method.Alg()}),
		jwt.WithLeeway(c.leeway),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	}
	if c.issuer != "" {
		opts = append(opts, jwt.WithIssuer(c.issuer))
	}
	if c.audience != "" {
		opts = append(opts, jwt.WithAudience(c.audience))
	}

	var claims sessionClaims
	if _, err := jwt.ParseWithClaims(token, &claims, c.keyFunc, opts...); err != nil {
		return domain.TokenPayload{}, classify(err)
	}

	if err := claims.TokenPayload.Validate(); err != nil {
		if errors.Is(err, domain.ErrInvalidSubject) {
			return domain.TokenPayload{}, err
		}
		return domain.TokenPayload{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	return claims.TokenPayload, nil
}

func (c *JWTCodec) keyFunc(*jwt.Token) (any, error) {
	return c.secret, nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %w", ErrTokenExpired, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return fmt.Errorf("%w: %w", ErrBadSignature, err)
	case errors.Is(err, jwt.ErrTokenInvalidIssuer), errors.Is(err, jwt.ErrTokenInvalidAudience):
		return fmt.Errorf("%w: %w", ErrClaims, err)
	default:
		return fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
}

func hmacMethod(alg string) (jwt.SigningMethod, error) {
	switch alg {
	case "", "HS256":
		return jwt.SigningMethodHS256, nil
	case "HS384":
		return jwt.SigningMethodHS384, nil
	case "HS512":
		return jwt.SigningMethodHS512, nil
	default:
		return nil, fmt.Errorf("jwt: unsupported algorithm %q", alg)
	}
}

// sessionClaims adapts the domain payload to jwt.Claims.
type sessionClaims struct {
	domain.TokenPayload
}

func (c sessionClaims) GetExpirationTime() (*jwt.NumericDate, error) {
	return numericDate(c.ExpiresAt), nil
}

func (c sessionClaims) GetIssuedAt() (*jwt.NumericDate, error) {
	return numericDate(c.IssuedAt), nil
}

func (c sessionClaims) GetNotBefore() (*jwt.NumericDate, error) {
	return numericDate(c.NotBefore), nil
}

func (c sessionClaims) GetIssuer() (string, error) {
	return c.Issuer, nil
}

func (c sessionClaims) GetSubject() (string, error) {
	return c.Subject, nil
}

func (c sessionClaims) GetAudience() (jwt.ClaimStrings, error) {
	if c.Audience == "" {
		return nil, nil
	}
	return jwt.ClaimStrings{c.Audience}, nil
}

func numericDate(unix int64) *jwt.NumericDate {
	if unix == 0 {
		return nil
	}
	return jwt.NewNumericDate(time.Unix(unix, 0))
}

var _ port.TokenCodec = (*JWTCodec)(nil)
