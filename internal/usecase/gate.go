package usecase

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/arklim/authgate/internal/core/domain"
	"github.com/arklim/authgate/internal/core/port"
	"github.com/arklim/authgate/internal/infra/logger"
	"github.com/arklim/authgate/internal/infra/telemetry"
)

var (
	// ErrIPBlacklisted indicates the client address is banned.
	ErrIPBlacklisted = errors.New("access denied: IP blacklisted")
	// ErrRateLimited indicates the client exceeded the sliding window.
	ErrRateLimited = errors.New("too many requests")
	// ErrServiceDegraded indicates a security store could not be read under a strict policy.
	ErrServiceDegraded = errors.New("security store unavailable")
)

const (
	ReasonAllowed          = "allowed"
	ReasonIPBlacklisted    = "ip_blacklisted"
	ReasonRateLimited      = "rate_limited"
	ReasonTokenBlacklisted = "token_blacklisted"

	HeaderRateLimitLimit     = "X-RateLimit-Limit"
	HeaderRateLimitRemaining = "X-RateLimit-Remaining"
	HeaderRateLimitReset     = "X-RateLimit-Reset"
	HeaderRetryAfter         = "Retry-After"

	bearerPrefix = "Bearer "
)

// DefaultSkipPaths bypass the token blacklist check. "/" matches only the root itself.
var DefaultSkipPaths = []string{
	"/api/v1/auth/login",
	"/api/v1/auth/logout",
	"/api/v1/auth/recover-password",
	"/api/v1/auth/reset-password",
	"/api/v1/user",
	"/",
}

// GateConfig tunes the request gate.
type GateConfig struct {
	MaxRequests int
	SkipPaths   []string
}

// Gate runs the IP blacklist, rate limit and token blacklist checks in order,
// stopping at the first denial.
type Gate struct {
	cfg     GateConfig
	ips     port.IPBlacklist
	rates   port.RateLimitStore
	tokens  port.TokenStore
	policy  domain.DegradationPolicy
	metrics *telemetry.AuthMetrics
	tracer  trace.Tracer
	now     func() time.Time
}

// NewGate constructs a Gate.
func NewGate(cfg GateConfig, ips port.IPBlacklist, rates port.RateLimitStore, tokens port.TokenStore, policy domain.DegradationPolicy, metrics *telemetry.AuthMetrics) *Gate {
	if cfg.SkipPaths == nil {
		cfg.SkipPaths = DefaultSkipPaths
	}
	return &Gate{
		cfg:     cfg,
		ips:     ips,
		rates:   rates,
		tokens:  tokens,
		policy:  policy,
		metrics: metrics,
		tracer:  otel.Tracer(tracerName),
		now:     time.Now,
	}
}

// WithClock overrides the time source used for rate windows.
func (g *Gate) WithClock(now func() time.Time) *Gate {
	if now != nil {
		g.now = now
	}
	return g
}

// Evaluate decides whether the request may proceed.
func (g *Gate) Evaluate(ctx context.Context, meta domain.RequestMeta) domain.GateDecision {
	ctx, span := g.tracer.Start(ctx, "Gate.Evaluate")
	defer span.End()

	decision := g.evaluate(ctx, meta)
	span.SetAttributes(
		attribute.Bool("gate.allowed", decision.Allowed),
		attribute.String("gate.reason", decision.Reason),
	)
	outcome := "allow"
	if !decision.Allowed {
		outcome = "deny"
	}
	g.metrics.GateDecision(outcome, decision.Reason)
	return decision
}

func (g *Gate) evaluate(ctx context.Context, meta domain.RequestMeta) domain.GateDecision {
	log := logger.WithContext(ctx).With(logger.IP(meta.ClientIP), zap.String("path", meta.Path))

	if g.ips != nil {
		banned, err := g.ips.IsBlacklisted(ctx, meta.ClientIP)
		if err != nil {
			if d, stop := g.degraded(log, domain.DegradationReasonIPBlacklistUnavailable, err); stop {
				return d
			}
		} else if banned {
			log.Warn("request from blacklisted ip")
			return deny(http.StatusForbidden, ReasonIPBlacklisted, nil)
		}
	}

	if g.rates != nil {
		now := g.now()
		window, err := g.rates.RecordAndCheck(ctx, meta.RateLimitKey(), now)
		if err != nil {
			if d, stop := g.degraded(log, domain.DegradationReasonRateLimitUnavailable, err); stop {
				return d
			}
		} else if window.Count > g.cfg.MaxRequests {
			if g.ips != nil {
				if err := g.ips.Add(ctx, meta.ClientIP); err != nil {
					log.Error("blacklist ip after rate violation failed", zap.Error(err))
				}
			}
			log.Warn("rate limit exceeded", zap.Int("count", window.Count))
			return deny(http.StatusTooManyRequests, ReasonRateLimited, g.rateHeaders(window, now))
		}
	}

	if g.tokens == nil || g.skipped(meta.Path) {
		return allow()
	}
	token, ok := BearerToken(meta.Authorization)
	if !ok {
		return allow()
	}
	blacklisted, err := g.tokens.IsBlacklisted(ctx, token)
	if err != nil {
		if d, stop := g.degraded(log, domain.DegradationReasonTokenBlacklistUnavailable, err); stop {
			return d
		}
		return allow()
	}
	if blacklisted {
		log.Warn("access attempt with blacklisted token", logger.Token(token))
		return deny(http.StatusUnauthorized, ReasonTokenBlacklisted, nil)
	}
	return allow()
}

func (g *Gate) degraded(log *zap.Logger, reason domain.DegradationReason, err error) (domain.GateDecision, bool) {
	if g.policy.AllowsFallback(reason) {
		log.Warn("security store unavailable, continuing", zap.String("reason", string(reason)), zap.Error(err))
		return domain.GateDecision{}, false
	}
	log.Error("security store unavailable, rejecting", zap.String("reason", string(reason)), zap.Error(err))
	return deny(http.StatusServiceUnavailable, string(reason), nil), true
}

func (g *Gate) rateHeaders(window domain.RateWindow, now time.Time) map[string]string {
	reset := window.Oldest.Add(g.rates.Window())
	retryAfter := int64(math.Ceil(reset.Sub(now).Seconds()))
	if retryAfter < 1 {
		retryAfter = 1
	}
	return map[string]string{
		HeaderRateLimitLimit:     strconv.Itoa(g.cfg.MaxRequests),
		HeaderRateLimitRemaining: strconv.Itoa(max(0, g.cfg.MaxRequests-window.Count)),
		HeaderRateLimitReset:     strconv.FormatInt(reset.Unix(), 10),
		HeaderRetryAfter:         strconv.FormatInt(retryAfter, 10),
	}
}

func (g *Gate) skipped(path string) bool {
	for _, p := range g.cfg.SkipPaths {
		if p == "/" {
			if path == "/" {
				return true
			}
			continue
		}
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, bool) {
	if !strings.HasPrefix(header, bearerPrefix) {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix))
	return token, token != ""
}

func allow() domain.GateDecision {
	return domain.GateDecision{Allowed: true, Status: http.StatusOK, Reason: ReasonAllowed}
}

func deny(status int, reason string, headers map[string]string) domain.GateDecision {
	return domain.GateDecision{Status: status, Reason: reason, Headers: headers}
}
