package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/arklim/authgate/internal/core/domain"
)

type stubEvaluator struct {
	decision domain.GateDecision
	seen     domain.RequestMeta
}

func (s *stubEvaluator) Evaluate(_ context.Context, meta domain.RequestMeta) domain.GateDecision {
	s.seen = meta
	return s.decision
}

func newGateRouter(eval RequestEvaluator) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(EnrichContext(), Gate(eval))
	router.GET("/api/v1/auth/validate-token", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return router
}

func TestGatePassesRequestMetadata(t *testing.T) {
	eval := &stubEvaluator{decision: domain.GateDecision{Allowed: true, Status: http.StatusOK}}
	router := newGateRouter(eval)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/validate-token", nil)
	req.RemoteAddr = "198.51.100.10:4242"
	req.Header.Set("Authorization", "Bearer abc")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if eval.seen.ClientIP != "198.51.100.10" || eval.seen.Path != "/api/v1/auth/validate-token" {
		t.Fatalf("unexpected metadata %+v", eval.seen)
	}
	if eval.seen.UserAgent != "unknown" || eval.seen.Authorization != "Bearer abc" {
		t.Fatalf("unexpected metadata %+v", eval.seen)
	}
}

func TestGateRejectsWithHeaders(t *testing.T) {
	eval := &stubEvaluator{decision: domain.GateDecision{
		Status: http.StatusTooManyRequests,
		Reason: "rate_limited",
		Headers: map[string]string{
			"X-RateLimit-Limit":     "30",
			"X-RateLimit-Remaining": "0",
			"X-RateLimit-Reset":     "1740823260",
			"Retry-After":           "60",
		},
	}}
	router := newGateRouter(eval)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/auth/validate-token", nil))

	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rr.Code)
	}
	if rr.Header().Get("Retry-After") != "60" || rr.Header().Get("X-RateLimit-Limit") != "30" {
		t.Fatalf("missing rate limit headers: %v", rr.Header())
	}

	var body ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Error != "Too many requests" || body.TraceID == "" {
		t.Fatalf("unexpected body %+v", body)
	}
}

func TestGateForbiddenMessage(t *testing.T) {
	router := newGateRouter(&stubEvaluator{decision: domain.GateDecision{Status: http.StatusForbidden, Reason: "ip_blacklisted"}})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/auth/validate-token", nil))

	var body ErrorResponse
	_ = json.Unmarshal(rr.Body.Bytes(), &body)
	if rr.Code != http.StatusForbidden || body.Error != "Access denied: IP blacklisted." {
		t.Fatalf("unexpected response %d %+v", rr.Code, body)
	}
}
