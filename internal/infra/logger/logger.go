package logger

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	lg   *zap.Logger
	once sync.Once
)

// RequestIDKey is used to store a request identifier on the context.
type RequestIDKey struct{}

// TraceIDKey is used to store the trace identifier on the context.
type TraceIDKey struct{}

// New returns a singleton zap.Logger: JSON in production, colored console otherwise.
func New(env string) (*zap.Logger, error) {
	var err error
	once.Do(func() {
		cfg := zap.NewProductionConfig()
		if env != "production" {
			cfg = zap.NewDevelopmentConfig()
			cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		}
		cfg.InitialFields = map[string]any{"service": "authgate"}

		lg, err = cfg.Build()
	})

	return lg, err
}

// WithContext attaches request scoped fields to the logger.
func WithContext(ctx context.Context) *zap.Logger {
	base := lg
	if base == nil {
		base = zap.NewNop()
	}
	if ctx == nil {
		return base
	}

	fields := make([]zap.Field, 0, 2)
	if id, ok := ctx.Value(RequestIDKey{}).(string); ok && id != "" {
		fields = append(fields, zap.String("request_id", id))
	}
	if id, ok := ctx.Value(TraceIDKey{}).(string); ok && id != "" {
		fields = append(fields, zap.String("trace_id", id))
	}
	return base.With(fields...)
}

// IP is a zap field carrying a masked client address.
func IP(ip string) zap.Field {
	return zap.String("client_ip", MaskIP(ip))
}

// Email is a zap field carrying a masked email address.
func Email(email string) zap.Field {
	return zap.String("email", MaskEmail(email))
}

// Token is a zap field carrying a masked bearer token.
func Token(token string) zap.Field {
	return zap.String("token", MaskToken(token))
}
