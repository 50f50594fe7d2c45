package usecase

import (
	"context"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/arklim/authgate/internal/core/domain"
	"github.com/arklim/authgate/internal/repository"
)

type gateFixture struct {
	gate   *Gate
	ips    *fakeIPBlacklist
	rates  *fakeRates
	tokens *fakeTokenStore
}

func newGateFixture(t *testing.T, policy domain.DegradationPolicy, maxRequests int) *gateFixture {
	t.Helper()
	f := &gateFixture{
		ips:    newFakeIPBlacklist(),
		rates:  newFakeRates(time.Minute),
		tokens: newFakeTokenStore(),
	}
	f.gate = NewGate(GateConfig{MaxRequests: maxRequests}, f.ips, f.rates, f.tokens, policy, newTestMetrics(t)).
		WithClock(func() time.Time { return authTestNow })
	return f
}

func TestGateRateLimitThenIPBan(t *testing.T) {
	f := newGateFixture(t, lenient(), 30)
	ctx := context.Background()
	meta := domain.RequestMeta{ClientIP: "198.51.100.4", UserAgent: "curl/8.0", Path: "/api/v1/auth/login"}

	for i := 1; i <= 30; i++ {
		if d := f.gate.Evaluate(ctx, meta); !d.Allowed {
			t.Fatalf("request %d unexpectedly denied: %+v", i, d)
		}
	}

	d := f.gate.Evaluate(ctx, meta)
	if d.Allowed || d.Status != http.StatusTooManyRequests {
		t.Fatalf("expected 429 on request 31, got %+v", d)
	}
	if d.Headers[HeaderRateLimitLimit] != "30" || d.Headers[HeaderRateLimitRemaining] != "0" {
		t.Fatalf("unexpected rate headers %v", d.Headers)
	}
	wantReset := strconv.FormatInt(authTestNow.Add(time.Minute).Unix(), 10)
	if d.Headers[HeaderRateLimitReset] != wantReset {
		t.Fatalf("expected reset %s, got %s", wantReset, d.Headers[HeaderRateLimitReset])
	}
	if d.Headers[HeaderRetryAfter] != "60" {
		t.Fatalf("expected Retry-After 60, got %q", d.Headers[HeaderRetryAfter])
	}
	if !f.ips.banned["198.51.100.4"] {
		t.Fatal("expected ip to be blacklisted after violation")
	}

	other := meta
	other.Path = "/"
	d = f.gate.Evaluate(ctx, other)
	if d.Allowed || d.Status != http.StatusForbidden || d.Reason != ReasonIPBlacklisted {
		t.Fatalf("expected 403 for blacklisted ip, got %+v", d)
	}

	if got := testutil.ToFloat64(f.gate.metrics.GateDecisions().WithLabelValues("deny", ReasonRateLimited)); got != 1 {
		t.Fatalf("expected one rate limited denial, got %v", got)
	}
}

func TestGateWindowsAreScopedByPath(t *testing.T) {
	f := newGateFixture(t, lenient(), 1)
	ctx := context.Background()

	a := domain.RequestMeta{ClientIP: "198.51.100.5", UserAgent: "ua", Path: "/a"}
	b := domain.RequestMeta{ClientIP: "198.51.100.5", UserAgent: "ua", Path: "/b"}
	if !f.gate.Evaluate(ctx, a).Allowed || !f.gate.Evaluate(ctx, b).Allowed {
		t.Fatal("expected first request per path to pass")
	}
	if f.gate.Evaluate(ctx, a).Allowed {
		t.Fatal("expected second request on the same path to be limited")
	}
}

func TestGateTokenBlacklist(t *testing.T) {
	f := newGateFixture(t, lenient(), 100)
	ctx := context.Background()
	f.tokens.blacklisted["revoked"] = true

	tests := []struct {
		name    string
		path    string
		auth    string
		allowed bool
	}{
		{name: "protected path", path: "/api/v1/auth/validate-token", auth: "Bearer revoked", allowed: false},
		{name: "skip listed logout", path: "/api/v1/auth/logout", auth: "Bearer revoked", allowed: true},
		{name: "skip listed user routes", path: "/api/v1/user/42", auth: "Bearer revoked", allowed: true},
		{name: "root is exact", path: "/", auth: "Bearer revoked", allowed: true},
		{name: "non root is not skipped", path: "/healthz", auth: "Bearer revoked", allowed: false},
		{name: "valid token", path: "/api/v1/auth/validate-token", auth: "Bearer fine", allowed: true},
		{name: "no bearer", path: "/api/v1/auth/validate-token", auth: "Basic revoked", allowed: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := f.gate.Evaluate(ctx, domain.RequestMeta{ClientIP: "198.51.100.6", UserAgent: tt.name, Path: tt.path, Authorization: tt.auth})
			if d.Allowed != tt.allowed {
				t.Fatalf("expected allowed=%v, got %+v", tt.allowed, d)
			}
			if !tt.allowed && d.Status != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", d.Status)
			}
		})
	}
}

func TestGateDegradationPolicy(t *testing.T) {
	meta := domain.RequestMeta{ClientIP: "198.51.100.7", UserAgent: "ua", Path: "/api/v1/auth/validate-token", Authorization: "Bearer t"}

	lenientGate := newGateFixture(t, lenient(), 10)
	lenientGate.ips.readErr = repository.ErrStoreUnavailable
	lenientGate.rates.err = repository.ErrStoreUnavailable
	lenientGate.tokens.readErr = repository.ErrStoreUnavailable
	if d := lenientGate.gate.Evaluate(context.Background(), meta); !d.Allowed {
		t.Fatalf("expected lenient gate to allow, got %+v", d)
	}

	strictGate := newGateFixture(t, domain.NewDegradationPolicy(domain.DegradationPolicyModeStrict), 10)
	strictGate.rates.err = repository.ErrStoreUnavailable
	d := strictGate.gate.Evaluate(context.Background(), meta)
	if d.Allowed || d.Status != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 under strict policy, got %+v", d)
	}
	if d.Reason != string(domain.DegradationReasonRateLimitUnavailable) {
		t.Fatalf("unexpected reason %q", d.Reason)
	}
}

func TestBearerToken(t *testing.T) {
	if token, ok := BearerToken("Bearer abc.def"); !ok || token != "abc.def" {
		t.Fatalf("unexpected result %q %v", token, ok)
	}
	if _, ok := BearerToken("Bearer "); ok {
		t.Fatal("expected empty bearer token to be rejected")
	}
	if _, ok := BearerToken("bearer abc"); ok {
		t.Fatal("expected case-sensitive scheme")
	}
}
