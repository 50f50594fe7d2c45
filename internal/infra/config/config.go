package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const developmentSecretKey = "authgate-development-secret"

type AppConfig struct {
	App       AppSettings       `mapstructure:"app"`
	Postgres  PostgresSettings  `mapstructure:"postgres"`
	Redis     RedisSettings     `mapstructure:"redis"`
	Kafka     KafkaSettings     `mapstructure:"kafka"`
	Auth      AuthSettings      `mapstructure:"auth"`
	GRPC      GRPCSettings      `mapstructure:"grpc"`
	Google    GoogleSettings    `mapstructure:"google"`
	Telemetry TelemetrySettings `mapstructure:"telemetry"`
	RateLimit RateLimitSettings `mapstructure:"rate_limit"`
	Security  SecuritySettings  `mapstructure:"security"`
	Argon2    Argon2Settings    `mapstructure:"argon2"`
}

type AppSettings struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

type GRPCSettings struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

type PostgresSettings struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	User              string        `mapstructure:"user"`
	Password          string        `mapstructure:"password"`
	Database          string        `mapstructure:"database"`
	SSLMode           string        `mapstructure:"ssl_mode"`
	MaxConns          int32         `mapstructure:"max_conns"`
	MinConns          int32         `mapstructure:"min_conns"`
	MaxConnLifetime   time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime   time.Duration `mapstructure:"max_conn_idle_time"`
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`
}

// RedisSettings configures Redis connection, TLS and key namespaces
type RedisSettings struct {
	Host             string        `mapstructure:"host"`
	Port             int           `mapstructure:"port"`
	DB               int           `mapstructure:"db"`
	Password         string        `mapstructure:"password"`
	TLSEnabled       bool          `mapstructure:"tls_enabled"`
	PoolSize         int           `mapstructure:"pool_size"`
	DialTimeout      time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout      time.Duration `mapstructure:"read_timeout"`
	BlacklistPrefix  string        `mapstructure:"blacklist_prefix"`
	RateLimitPrefix  string        `mapstructure:"rate_limit_prefix"`
	IdentityPrefix   string        `mapstructure:"identity_prefix"`
	OAuthStatePrefix string        `mapstructure:"oauth_state_prefix"`
	OAuthStateTTL    time.Duration `mapstructure:"oauth_state_ttl"`
}

// KafkaSettings configures the notification producer
type KafkaSettings struct {
	Enabled     bool     `mapstructure:"enabled"`
	Brokers     []string `mapstructure:"brokers"`
	TopicPrefix string   `mapstructure:"topic_prefix"`
	Async       bool     `mapstructure:"async"`
}

// AuthSettings configures token signing and lifetimes
type AuthSettings struct {
	SecretKey             string        `mapstructure:"secret_key"`
	Algorithm             string        `mapstructure:"algorithm"`
	ServerURL             string        `mapstructure:"server_url"`
	Audience              string        `mapstructure:"audience"`
	AccessTokenTTL        time.Duration `mapstructure:"access_token_ttl"`
	RefreshTokenTTL       time.Duration `mapstructure:"refresh_token_ttl"`
	ResetTokenTTL         time.Duration `mapstructure:"reset_token_ttl"`
	IdentityCacheTTL      time.Duration `mapstructure:"identity_cache_ttl"`
	Leeway                time.Duration `mapstructure:"leeway"`
	StrictTransportMaxAge time.Duration `mapstructure:"strict_transport_max_age"`
}

// GoogleSettings configures the OAuth2 authorization code flow
type GoogleSettings struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	RedirectURL  string `mapstructure:"redirect_url"`
}

// Enabled reports whether the Google flow has credentials.
func (g GoogleSettings) Enabled() bool {
	return g.ClientID != "" && g.ClientSecret != ""
}

// RateLimitSettings configures the sliding window and the ban applied on violation
type RateLimitSettings struct {
	MaxRequests       int           `mapstructure:"max_requests"`
	WindowDuration    time.Duration `mapstructure:"window_duration"`
	BlacklistDuration time.Duration `mapstructure:"blacklist_duration"`
}

// SecuritySettings configures the request gate and browser-facing headers
type SecuritySettings struct {
	DegradationPolicy string   `mapstructure:"degradation_policy"`
	StrictReasons     []string `mapstructure:"strict_reasons"`
	TrustedProxies    []string `mapstructure:"trusted_proxies"`
	AllowedOrigins    []string `mapstructure:"allowed_origins"`
}

// Argon2Settings configures Argon2id password hashing parameters
type Argon2Settings struct {
	Memory      uint32 `mapstructure:"memory"`
	Iterations  uint32 `mapstructure:"iterations"`
	Parallelism uint8  `mapstructure:"parallelism"`
	SaltLength  uint32 `mapstructure:"salt_length"`
	KeyLength   uint32 `mapstructure:"key_length"`
}

type TelemetrySettings struct {
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	ServiceName  string  `mapstructure:"service_name"`
	SamplingRate float64 `mapstructure:"sampling_rate"`
}

func Load() (*AppConfig, error) {
	v := viper.New()

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("AUTHGATE")

	setDefaults(v)

	if err := bindEnvs(v, []string{
		"app.name",
		"app.env",
		"app.host",
		"app.port",
		"grpc.host",
		"grpc.port",
		"postgres.host",
		"postgres.port",
		"postgres.user",
		"postgres.password",
		"postgres.database",
		"postgres.ssl_mode",
		"postgres.max_conns",
		"postgres.min_conns",
		"postgres.max_conn_lifetime",
		"postgres.max_conn_idle_time",
		"postgres.health_check_period",
		"redis.host",
		"redis.port",
		"redis.db",
		"redis.password",
		"redis.tls_enabled",
		"redis.pool_size",
		"redis.dial_timeout",
		"redis.read_timeout",
		"redis.blacklist_prefix",
		"redis.rate_limit_prefix",
		"redis.identity_prefix",
		"redis.oauth_state_prefix",
		"redis.oauth_state_ttl",
		"kafka.enabled",
		"kafka.brokers",
		"kafka.topic_prefix",
		"kafka.async",
		"auth.secret_key",
		"auth.algorithm",
		"auth.server_url",
		"auth.audience",
		"auth.access_token_ttl",
		"auth.refresh_token_ttl",
		"auth.reset_token_ttl",
		"auth.identity_cache_ttl",
		"auth.leeway",
		"auth.strict_transport_max_age",
		"google.client_id",
		"google.client_secret",
		"google.redirect_url",
		"telemetry.otlp_endpoint",
		"telemetry.service_name",
		"telemetry.sampling_rate",
		"rate_limit.max_requests",
		"rate_limit.window_duration",
		"rate_limit.blacklist_duration",
		"security.degradation_policy",
		"security.strict_reasons",
		"security.trusted_proxies",
		"security.allowed_origins",
		"argon2.memory",
		"argon2.iterations",
		"argon2.parallelism",
		"argon2.salt_length",
		"argon2.key_length",
	}); err != nil {
		return nil, err
	}

	v.AutomaticEnv()

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects configurations the service cannot run with.
func (c *AppConfig) Validate() error {
	if c.Auth.SecretKey == "" {
		return fmt.Errorf("config: auth.secret_key is required")
	}
	if c.App.Env == "production" && c.Auth.SecretKey == developmentSecretKey {
		return fmt.Errorf("config: auth.secret_key must be set in production")
	}
	switch c.Auth.Algorithm {
	case "HS256", "HS384", "HS512":
	default:
		return fmt.Errorf("config: unsupported auth.algorithm %q", c.Auth.Algorithm)
	}
	if c.Auth.RefreshTokenTTL <= c.Auth.AccessTokenTTL {
		return fmt.Errorf("config: auth.refresh_token_ttl must exceed auth.access_token_ttl")
	}
	if c.RateLimit.MaxRequests <= 0 {
		return fmt.Errorf("config: rate_limit.max_requests must be positive")
	}
	if c.RateLimit.WindowDuration <= 0 {
		return fmt.Errorf("config: rate_limit.window_duration must be positive")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "authgate")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.host", "0.0.0.0")
	v.SetDefault("app.port", 8080)

	v.SetDefault("grpc.host", "0.0.0.0")
	v.SetDefault("grpc.port", 50051)

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "authgate")
	v.SetDefault("postgres.password", "authgate_password")
	v.SetDefault("postgres.database", "authgate")
	v.SetDefault("postgres.ssl_mode", "disable")
	v.SetDefault("postgres.max_conns", 10)
	v.SetDefault("postgres.min_conns", 2)
	v.SetDefault("postgres.max_conn_lifetime", "60m")
	v.SetDefault("postgres.max_conn_idle_time", "15m")
	v.SetDefault("postgres.health_check_period", "30s")

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.tls_enabled", false)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.dial_timeout", "5s")
	v.SetDefault("redis.read_timeout", "3s")
	v.SetDefault("redis.blacklist_prefix", "blacklist")
	v.SetDefault("redis.rate_limit_prefix", "ratelimit")
	v.SetDefault("redis.identity_prefix", "identity")
	v.SetDefault("redis.oauth_state_prefix", "oauth:state")
	v.SetDefault("redis.oauth_state_ttl", "10m")

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic_prefix", "authgate")
	v.SetDefault("kafka.async", true)

	v.SetDefault("auth.secret_key", developmentSecretKey)
	v.SetDefault("auth.algorithm", "HS256")
	v.SetDefault("auth.server_url", "http://localhost:8080")
	v.SetDefault("auth.audience", "http://localhost:8080/api/v1")
	v.SetDefault("auth.access_token_ttl", "30m")
	v.SetDefault("auth.refresh_token_ttl", "10080m")
	v.SetDefault("auth.reset_token_ttl", "1h")
	v.SetDefault("auth.identity_cache_ttl", "5m")
	v.SetDefault("auth.leeway", "60s")
	v.SetDefault("auth.strict_transport_max_age", "8760h")

	v.SetDefault("google.client_id", "")
	v.SetDefault("google.client_secret", "")
	v.SetDefault("google.redirect_url", "http://localhost:8080/api/v1/auth/google")

	v.SetDefault("telemetry.otlp_endpoint", "")
	v.SetDefault("telemetry.service_name", "authgate")
	v.SetDefault("telemetry.sampling_rate", 1.0)

	v.SetDefault("rate_limit.max_requests", 30)
	v.SetDefault("rate_limit.window_duration", "60s")
	v.SetDefault("rate_limit.blacklist_duration", "3600s")

	v.SetDefault("security.degradation_policy", "lenient")
	v.SetDefault("security.strict_reasons", []string{})
	v.SetDefault("security.trusted_proxies", []string{})
	v.SetDefault("security.allowed_origins", []string{"http://localhost:3000"})

	v.SetDefault("argon2.memory", 65536) // 64 MB
	v.SetDefault("argon2.iterations", 3)
	v.SetDefault("argon2.parallelism", 4)
	v.SetDefault("argon2.salt_length", 16)
	v.SetDefault("argon2.key_length", 32)
}

func bindEnvs(v *viper.Viper, keys []string) error {
	for _, key := range keys {
		envKey := strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, "AUTHGATE_"+envKey, envKey); err != nil {
			return fmt.Errorf("bind env for %s: %w", key, err)
		}
	}
	return nil
}
