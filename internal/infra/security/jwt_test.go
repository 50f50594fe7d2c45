package security

import (
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/arklim/authgate/internal/core/domain"
)

var testNow = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestCodec(t *testing.T, cfg JWTConfig) *JWTCodec {
	t.Helper()
	if cfg.SecretKey == "" {
		cfg.SecretKey = "test-secret"
	}
	if cfg.Issuer == "" {
		cfg.Issuer = "http://localhost:8080"
	}
	if cfg.Audience == "" {
		cfg.Audience = "http://localhost:8080/api/v1"
	}
	codec, err := NewJWTCodec(cfg)
	if err != nil {
		t.Fatalf("NewJWTCodec returned error: %v", err)
	}
	return codec.WithClock(func() time.Time { return testNow })
}

func testPayload() domain.TokenPayload {
	birthdate := "1990-05-17"
	return domain.TokenPayload{
		Subject:       domain.SubjectPrefix + uuid.NewString(),
		ExpiresAt:     testNow.Add(30 * time.Minute).Unix(),
		NotBefore:     testNow.Add(-time.Second).Unix(),
		IssuedAt:      testNow.Unix(),
		JTI:           uuid.NewString(),
		SessionID:     uuid.NewString(),
		Scope:         domain.ScopeAccess,
		Audience:      "http://localhost:8080/api/v1",
		Issuer:        "http://localhost:8080",
		AtUseNbr:      30,
		Nationalities: []string{"ECU"},
		PublicClaims: domain.PublicClaims{
			Email:             "alice@example.com",
			Nickname:          "Alice",
			PreferredUsername: "alice",
			GivenName:         "Alice",
			FamilyName:        "Liddell",
			Gender:            domain.GenderFemale,
			Birthdate:         birthdate,
			UpdatedAt:         testNow.Add(-time.Hour).Unix(),
			PhoneNumber:       "+593987654321",
			Address: &domain.Address{
				StreetAddress: "Av. Amazonas",
				Locality:      "Quito",
				Region:        "Pichincha",
				Country:       "Ecuador",
				PostalCode:    "170150",
			},
		},
	}
}

func TestJWTCodecRoundTrip(t *testing.T) {
	for _, alg := range []string{"HS256", "HS384", "HS512"} {
		t.Run(alg, func(t *testing.T) {
			codec := newTestCodec(t, JWTConfig{Algorithm: alg})
			payload := testPayload()

			token, err := codec.Encode(payload)
			if err != nil {
				t.Fatalf("Encode returned error: %v", err)
			}

			decoded, err := codec.Decode(token)
			if err != nil {
				t.Fatalf("Decode returned error: %v", err)
			}
			if !reflect.DeepEqual(decoded, payload) {
				t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", decoded, payload)
			}
		})
	}
}

func TestJWTCodecExpiry(t *testing.T) {
	codec := newTestCodec(t, JWTConfig{})
	payload := testPayload()
	payload.IssuedAt = testNow.Add(-2 * time.Hour).Unix()
	payload.NotBefore = payload.IssuedAt - 1
	payload.ExpiresAt = testNow.Add(-30 * time.Second).Unix()

	token, err := codec.Encode(payload)
	if err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}
	if _, err := codec.Decode(token); err != nil {
		t.Fatalf("expected token within leeway to decode, got %v", err)
	}

	payload.ExpiresAt = testNow.Add(-61 * time.Second).Unix()
	token, err = codec.Encode(payload)
	if err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}
	if _, err := codec.Decode(token); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestJWTCodecBadSignature(t *testing.T) {
	signer := newTestCodec(t, JWTConfig{SecretKey: "one"})
	verifier := newTestCodec(t, JWTConfig{SecretKey: "two"})

	token, err := signer.Encode(testPayload())
	if err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}
	if _, err := verifier.Decode(token); !errors.Is(err, ErrBadSignature) {
		t.Fatalf("expected ErrBadSignature, got %v", err)
	}

	parts := strings.Split(token, ".")
	tampered := parts[0] + "." + parts[1] + "." + strings.Repeat("A", len(parts[2]))
	if _, err := signer.Decode(tampered); !errors.Is(err, ErrBadSignature) {
		t.Fatalf("expected ErrBadSignature for tampered token, got %v", err)
	}
}

func TestJWTCodecClaimsMismatch(t *testing.T) {
	codec := newTestCodec(t, JWTConfig{})

	wrongAudience := testPayload()
	wrongAudience.Audience = "https://other.example.com"
	token, err := codec.Encode(wrongAudience)
	if err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}
	if _, err := codec.Decode(token); !errors.Is(err, ErrClaims) {
		t.Fatalf("expected ErrClaims for audience, got %v", err)
	}

	wrongIssuer := testPayload()
	wrongIssuer.Issuer = "https://evil.example.com"
	token, err = codec.Encode(wrongIssuer)
	if err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}
	if _, err := codec.Decode(token); !errors.Is(err, ErrClaims) {
		t.Fatalf("expected ErrClaims for issuer, got %v", err)
	}
}

func TestJWTCodecRejectsForeignAlgorithm(t *testing.T) {
	codec := newTestCodec(t, JWTConfig{Algorithm: "HS256"})
	claims := sessionClaims{testPayload()}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := codec.Decode(token); !errors.Is(err, ErrBadSignature) {
		t.Fatalf("expected ErrBadSignature for unexpected algorithm, got %v", err)
	}

	if _, err := codec.Decode("not-a-jwt"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for garbage, got %v", err)
	}
}

func TestJWTCodecSubjectValidation(t *testing.T) {
	codec := newTestCodec(t, JWTConfig{})

	bad := testPayload()
	bad.Subject = "alice@example.com"
	if _, err := codec.Encode(bad); !errors.Is(err, ErrEncoding) {
		t.Fatalf("expected ErrEncoding for invalid subject, got %v", err)
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, sessionClaims{bad}).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := codec.Decode(token); !errors.Is(err, domain.ErrInvalidSubject) {
		t.Fatalf("expected ErrInvalidSubject, got %v", err)
	}
}

func TestNewJWTCodecRejectsUnsupportedAlgorithm(t *testing.T) {
	if _, err := NewJWTCodec(JWTConfig{SecretKey: "s", Algorithm: "RS256"}); err == nil {
		t.Fatal("expected error for RS256")
	}
	if _, err := NewJWTCodec(JWTConfig{Algorithm: "HS256"}); err == nil {
		t.Fatal("expected error for empty secret")
	}
}

func TestResetTokenCodec(t *testing.T) {
	codec, err := NewResetTokenCodec(JWTConfig{SecretKey: "test-secret", Issuer: "http://localhost:8080"}, time.Hour)
	if err != nil {
		t.Fatalf("NewResetTokenCodec returned error: %v", err)
	}
	now := testNow
	codec.WithClock(func() time.Time { return now })

	token, expires, err := codec.Issue("alice@example.com")
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}
	if !expires.Equal(testNow.Add(time.Hour)) {
		t.Fatalf("unexpected expiry %s", expires)
	}

	email, err := codec.Verify(token)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if email != "alice@example.com" {
		t.Fatalf("unexpected email %q", email)
	}

	now = testNow.Add(2 * time.Hour)
	if _, err := codec.Verify(token); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}

	session := newTestCodec(t, JWTConfig{})
	sessionToken, err := session.Encode(testPayload())
	if err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}
	now = testNow
	if _, err := codec.Verify(sessionToken); err == nil {
		t.Fatal("expected session token to be rejected as reset token")
	}
}
