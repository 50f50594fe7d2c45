package routes

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/arklim/authgate/internal/infra/config"
	"github.com/arklim/authgate/internal/transport/http/handlers"
	"github.com/arklim/authgate/internal/transport/http/middleware"
	"github.com/arklim/authgate/internal/usecase"
)

// ServiceSet groups the services the HTTP layer depends on.
type ServiceSet struct {
	Auth          *usecase.AuthService
	PasswordReset *usecase.PasswordResetService
	Google        *usecase.GoogleAuthService
}

// Dependencies encapsulates the objects required to register routes.
type Dependencies struct {
	Config   *config.AppConfig
	Logger   *zap.Logger
	Gate     middleware.RequestEvaluator
	Metrics  *middleware.HTTPMetrics
	Gatherer prometheus.Gatherer
	Services ServiceSet
	Database DatabaseChecker
	Cache    CacheChecker
}

// DatabaseChecker exposes readiness behaviour for database connections.
type DatabaseChecker interface {
	Ping(ctx context.Context) error
}

// CacheChecker exposes readiness behaviour for cache backends.
type CacheChecker interface {
	HealthCheck(ctx context.Context) error
}

// Register configures the Gin engine with routes and middleware.
func Register(deps Dependencies) (*gin.Engine, error) {
	if deps.Config.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if err := r.SetTrustedProxies(deps.Config.Security.TrustedProxies); err != nil {
		return nil, err
	}
	r.Use(gin.Recovery())
	r.Use(middleware.Tracing())
	r.Use(middleware.EnrichContext())
	r.Use(middleware.Logger(deps.Logger))
	r.Use(deps.Metrics.Handler())
	r.Use(middleware.SecurityHeaders(deps.Config.Auth.StrictTransportMaxAge))
	r.Use(middleware.CORS(deps.Config.Security.AllowedOrigins))
	r.Use(middleware.Gate(deps.Gate))

	healthOptions := make([]handlers.HealthOption, 0, 2)
	if deps.Database != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("database", deps.Database.Ping))
	}
	if deps.Cache != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("redis", deps.Cache.HealthCheck))
	}
	healthHandler := handlers.NewHealthHandler(healthOptions...)

	r.GET("/healthz", healthHandler.Status)
	r.GET("/readyz", healthHandler.Readiness)

	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	authGroup := r.Group("/api/v1/auth")
	if deps.Services.Auth != nil {
		handlers.NewAuthHandler(deps.Services.Auth).RegisterRoutes(authGroup)
	}
	if deps.Services.PasswordReset != nil {
		handlers.NewPasswordHandler(deps.Services.PasswordReset).RegisterRoutes(authGroup)
	}
	if deps.Services.Google != nil {
		handlers.NewGoogleHandler(deps.Services.Google).RegisterRoutes(authGroup)
	}

	return r, nil
}
