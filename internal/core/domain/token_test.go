package domain

import (
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestValidateSubject(t *testing.T) {
	id := uuid.New()
	cases := []struct {
		name string
		sub  string
		ok   bool
	}{
		{name: "valid", sub: SubjectPrefix + id.String(), ok: true},
		{name: "missing prefix", sub: id.String()},
		{name: "wrong prefix", sub: "user:" + id.String()},
		{name: "uppercase uuid", sub: "username:" + "A0B1C2D3-0000-4000-8000-000000000000"},
		{name: "uuid v1", sub: "username:a0b1c2d3-0000-1000-8000-000000000000"},
		{name: "bad variant", sub: "username:a0b1c2d3-0000-4000-c000-000000000000"},
		{name: "empty", sub: ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateSubject(tc.sub)
			if tc.ok && err != nil {
				t.Fatalf("expected valid subject, got %v", err)
			}
			if !tc.ok && !errors.Is(err, ErrInvalidSubject) {
				t.Fatalf("expected ErrInvalidSubject, got %v", err)
			}
		})
	}
}

func TestSubjectUserID(t *testing.T) {
	id := uuid.New()
	got, err := SubjectUserID(SubjectPrefix + id.String())
	if err != nil {
		t.Fatalf("SubjectUserID returned error: %v", err)
	}
	if got != id {
		t.Fatalf("expected %s, got %s", id, got)
	}
}

func TestTokenPayloadValidate(t *testing.T) {
	base := TokenPayload{
		Subject:   SubjectPrefix + uuid.NewString(),
		IssuedAt:  100,
		NotBefore: 99,
		ExpiresAt: 200,
	}
	if err := base.Validate(); err != nil {
		t.Fatalf("expected valid payload, got %v", err)
	}

	expired := base
	expired.ExpiresAt = expired.NotBefore
	if err := expired.Validate(); !errors.Is(err, ErrInvalidPayload) {
		t.Fatalf("expected ErrInvalidPayload for exp <= nbf, got %v", err)
	}

	future := base
	future.NotBefore = future.IssuedAt + 1
	if err := future.Validate(); !errors.Is(err, ErrInvalidPayload) {
		t.Fatalf("expected ErrInvalidPayload for nbf > iat, got %v", err)
	}
}

func TestParseUserInfo(t *testing.T) {
	id := uuid.New()
	session := NewRefreshSession("token", id, "2001:db8::1", 0)

	gotID, ip, err := ParseUserInfo(session.UserInfo)
	if err != nil {
		t.Fatalf("ParseUserInfo returned error: %v", err)
	}
	if gotID != id || ip != "2001:db8::1" {
		t.Fatalf("unexpected parse result %s %s", gotID, ip)
	}

	if _, _, err := ParseUserInfo("garbage"); err == nil {
		t.Fatalf("expected error for malformed value")
	}
}

func TestDegradationPolicy(t *testing.T) {
	lenient := NewDegradationPolicy(ParseDegradationPolicyMode("anything"))
	if !lenient.AllowsFallback(DegradationReasonRateLimitUnavailable) {
		t.Fatalf("lenient policy should allow fallback")
	}

	mixed := lenient.WithStrictReasons(DegradationReasonTokenBlacklistUnavailable)
	if mixed.AllowsFallback(DegradationReasonTokenBlacklistUnavailable) {
		t.Fatalf("reason marked strict should not allow fallback")
	}
	if !mixed.AllowsFallback(DegradationReasonIPBlacklistUnavailable) {
		t.Fatalf("other reasons should still allow fallback")
	}

	strict := NewDegradationPolicy(ParseDegradationPolicyMode(" STRICT "))
	if strict.AllowsFallback(DegradationReasonIPBlacklistUnavailable) {
		t.Fatalf("strict policy should not allow fallback")
	}
}
