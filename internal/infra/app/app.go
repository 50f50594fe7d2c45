package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/arklim/authgate/internal/core/domain"
	"github.com/arklim/authgate/internal/core/port"
	"github.com/arklim/authgate/internal/infra/config"
	"github.com/arklim/authgate/internal/infra/database"
	kafkainfra "github.com/arklim/authgate/internal/infra/kafka"
	"github.com/arklim/authgate/internal/infra/logger"
	redisinfra "github.com/arklim/authgate/internal/infra/redis"
	"github.com/arklim/authgate/internal/infra/security"
	"github.com/arklim/authgate/internal/infra/telemetry"
	postgresrepo "github.com/arklim/authgate/internal/repository/postgres"
	redisrepo "github.com/arklim/authgate/internal/repository/redis"
	transportgrpc "github.com/arklim/authgate/internal/transport/grpc"
	grpcinterceptors "github.com/arklim/authgate/internal/transport/grpc/interceptors"
	"github.com/arklim/authgate/internal/transport/http/middleware"
	"github.com/arklim/authgate/internal/transport/http/routes"
	"github.com/arklim/authgate/internal/usecase"
)

// blacklistGrace keeps a revoked access token banned slightly past its own expiry.
const blacklistGrace = time.Minute

type Application struct {
	cfg        *config.AppConfig
	engine     *gin.Engine
	logger     *zap.Logger
	pool       *pgxpool.Pool
	redis      *redisinfra.Client
	producer   *kafkainfra.Producer
	tracer     *telemetry.TracerProvider
	grpcServer *transportgrpc.Server
	grpcAddr   string
}

func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	tracer, err := telemetry.NewTracerProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}

	redisClient, err := redisinfra.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init redis: %w", err)
	}

	application := &Application{
		cfg:      cfg,
		logger:   log,
		pool:     pool,
		redis:    redisClient,
		tracer:   tracer,
		grpcAddr: fmt.Sprintf("%s:%d", cfg.GRPC.Host, cfg.GRPC.Port),
	}
	if err := application.wire(ctx); err != nil {
		application.close(context.Background())
		return nil, err
	}
	return application, nil
}

func (a *Application) wire(ctx context.Context) error {
	cfg, log := a.cfg, a.logger
	rdb := a.redis.Client()

	hasher, err := security.NewArgon2Hasher(security.Argon2Config{
		Memory:      cfg.Argon2.Memory,
		Iterations:  cfg.Argon2.Iterations,
		Parallelism: cfg.Argon2.Parallelism,
		SaltLength:  cfg.Argon2.SaltLength,
		KeyLength:   cfg.Argon2.KeyLength,
	})
	if err != nil {
		return fmt.Errorf("configure argon2: %w", err)
	}

	jwtCfg := security.JWTConfig{
		SecretKey: cfg.Auth.SecretKey,
		Algorithm: cfg.Auth.Algorithm,
		Issuer:    cfg.Auth.ServerURL,
		Audience:  cfg.Auth.Audience,
		Leeway:    cfg.Auth.Leeway,
	}
	codec, err := security.NewJWTCodec(jwtCfg)
	if err != nil {
		return fmt.Errorf("init jwt codec: %w", err)
	}
	resets, err := security.NewResetTokenCodec(jwtCfg, cfg.Auth.ResetTokenTTL)
	if err != nil {
		return fmt.Errorf("init reset token codec: %w", err)
	}

	tokens := redisrepo.NewTokenStore(rdb, redisrepo.TokenStoreConfig{
		BlacklistPrefix: cfg.Redis.BlacklistPrefix,
		BlacklistTTL:    cfg.Auth.AccessTokenTTL + blacklistGrace,
		SessionTTL:      cfg.Auth.RefreshTokenTTL,
	})
	rates := redisrepo.NewRateLimitRepository(rdb, redisrepo.SlidingWindowConfig{
		KeyPrefix: cfg.Redis.RateLimitPrefix,
		Window:    cfg.RateLimit.WindowDuration,
	})
	ips := redisrepo.NewIPBlacklistRepository(rdb, cfg.Redis.BlacklistPrefix, cfg.RateLimit.BlacklistDuration)
	identities := redisrepo.NewIdentityCacheRepository(rdb, cfg.Redis.IdentityPrefix, cfg.Auth.IdentityCacheTTL)
	users := postgresrepo.NewUserRepository(a.pool)

	events := a.eventPublisher()
	policy := degradationPolicy(cfg.Security)

	metrics, err := telemetry.NewAuthMetrics(prometheus.DefaultRegisterer)
	if err != nil {
		return fmt.Errorf("init auth metrics: %w", err)
	}

	authService, err := usecase.NewAuthService(usecase.AuthConfig{
		Issuer:          cfg.Auth.ServerURL,
		Audience:        cfg.Auth.Audience,
		AccessTokenTTL:  cfg.Auth.AccessTokenTTL,
		RefreshTokenTTL: cfg.Auth.RefreshTokenTTL,
		MaxRequests:     cfg.RateLimit.MaxRequests,
	}, usecase.AuthDependencies{
		Users:      users,
		Codec:      codec,
		Tokens:     tokens,
		Identities: identities,
		Hasher:     hasher,
		Events:     events,
		Policy:     policy,
		Metrics:    metrics,
		Logger:     log,
	})
	if err != nil {
		return fmt.Errorf("init auth service: %w", err)
	}

	passwordResetService := usecase.NewPasswordResetService(users, resets, hasher, events, metrics, log)

	var googleService *usecase.GoogleAuthService
	if cfg.Google.Enabled() {
		states := redisrepo.NewOAuthStateRepository(rdb, cfg.Redis.OAuthStatePrefix, cfg.Redis.OAuthStateTTL)
		googleService, err = usecase.NewGoogleAuthService(ctx, cfg.Google, states, users, authService, log)
		if err != nil {
			return fmt.Errorf("init google auth: %w", err)
		}
	} else {
		log.Info("google credentials not configured, google login disabled")
	}

	gate := usecase.NewGate(usecase.GateConfig{MaxRequests: cfg.RateLimit.MaxRequests}, ips, rates, tokens, policy, metrics)

	httpMetrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{})
	if err != nil {
		return fmt.Errorf("init http metrics: %w", err)
	}

	a.engine, err = routes.Register(routes.Dependencies{
		Config:   cfg,
		Logger:   log,
		Gate:     gate,
		Metrics:  httpMetrics,
		Gatherer: prometheus.DefaultGatherer,
		Database: a.pool,
		Cache:    a.redis,
		Services: routes.ServiceSet{
			Auth:          authService,
			PasswordReset: passwordResetService,
			Google:        googleService,
		},
	})
	if err != nil {
		return fmt.Errorf("init http routes: %w", err)
	}

	grpcMetrics, err := grpcinterceptors.NewGRPCMetrics(grpcinterceptors.GRPCMetricsOptions{})
	if err != nil {
		return fmt.Errorf("init grpc metrics: %w", err)
	}
	a.grpcServer, err = transportgrpc.NewServer(transportgrpc.ServerDependencies{
		Auth:           authService,
		Metrics:        grpcMetrics,
		TracerProvider: a.tracer.Provider(),
		Logger:         log,
	})
	if err != nil {
		return fmt.Errorf("init grpc server: %w", err)
	}
	return nil
}

func (a *Application) eventPublisher() port.EventPublisher {
	cfg, log := a.cfg, a.logger
	if !cfg.Kafka.Enabled || len(cfg.Kafka.Brokers) == 0 {
		log.Info("kafka disabled, using stub publisher")
		return kafkainfra.NewStubPublisher(log)
	}
	producer, err := kafkainfra.NewProducer(cfg.Kafka, log)
	if err != nil {
		log.Warn("failed to init kafka producer, using stub publisher", zap.Error(err))
		return kafkainfra.NewStubPublisher(log)
	}
	a.producer = producer
	log.Info("kafka event publisher initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
	return kafkainfra.NewEventPublisher(producer, cfg.App)
}

// degradationPolicy builds the store-failure policy from configuration.
// Unknown reason names are ignored.
func degradationPolicy(cfg config.SecuritySettings) domain.DegradationPolicy {
	policy := domain.NewDegradationPolicy(domain.ParseDegradationPolicyMode(cfg.DegradationPolicy))
	if len(cfg.StrictReasons) == 0 {
		return policy
	}
	reasons := make([]domain.DegradationReason, 0, len(cfg.StrictReasons))
	for _, name := range cfg.StrictReasons {
		switch reason := domain.DegradationReason(name); reason {
		case domain.DegradationReasonIPBlacklistUnavailable,
			domain.DegradationReasonRateLimitUnavailable,
			domain.DegradationReasonTokenBlacklistUnavailable,
			domain.DegradationReasonIdentityCacheUnavailable:
			reasons = append(reasons, reason)
		}
	}
	return policy.WithStrictReasons(reasons...)
}

func (a *Application) Run(ctx context.Context) error {
	defer a.close(context.Background())

	grpcErrCh := make(chan error, 1)
	if a.grpcServer != nil && a.grpcAddr != "" {
		lis, err := net.Listen("tcp", a.grpcAddr)
		if err != nil {
			return fmt.Errorf("listen grpc: %w", err)
		}
		a.logger.Info("starting gRPC server", zap.String("address", a.grpcAddr))
		go func() {
			if err := a.grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				grpcErrCh <- fmt.Errorf("run grpc server: %w", err)
			}
		}()
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting authgate API",
		zap.String("env", a.cfg.App.Env),
		zap.String("address", srv.Addr),
	)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- fmt.Errorf("run server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.grpcServer.Shutdown()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	case err := <-serverErrCh:
		return err
	case err := <-grpcErrCh:
		return err
	}
}

func (a *Application) close(ctx context.Context) {
	a.grpcServer.Shutdown()
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Warn("close kafka producer", zap.Error(err))
		}
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.pool != nil {
		a.pool.Close()
	}
	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			a.logger.Warn("shutdown tracer", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}
