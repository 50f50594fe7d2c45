package interceptors

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/arklim/authgate/internal/core/domain"
	"github.com/arklim/authgate/internal/infra/logger"
	"github.com/arklim/authgate/internal/infra/security"
	"github.com/arklim/authgate/internal/repository"
	"github.com/arklim/authgate/internal/usecase"
)

const (
	authorizationKey = "authorization"
	bearerPrefix     = "bearer "
)

// Authenticator resolves the identity behind an access token.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (domain.Identity, error)
}

// AuthOptions fine-tunes interceptor behaviour.
type AuthOptions struct {
	AllowMethods []string
	Logger       *zap.Logger
}

// AuthInterceptor validates incoming calls using bearer access tokens.
type AuthInterceptor struct {
	auth   Authenticator
	logger *zap.Logger
	allow  map[string]struct{}
}

// NewAuthInterceptor constructs a new AuthInterceptor instance.
func NewAuthInterceptor(auth Authenticator, opts AuthOptions) *AuthInterceptor {
	allow := make(map[string]struct{}, len(opts.AllowMethods))
	for _, method := range opts.AllowMethods {
		if method = strings.TrimSpace(method); method != "" {
			allow[method] = struct{}{}
		}
	}

	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return &AuthInterceptor{auth: auth, logger: log, allow: allow}
}

// UnaryServerInterceptor returns a gRPC unary interceptor that enforces token authentication.
func (ai *AuthInterceptor) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		ctx, err := ai.authorize(ctx, info.FullMethod)
		if err != nil {
			return nil, err
		}
		return handler(ctx, req)
	}
}

// StreamServerInterceptor applies the same checks to streaming calls.
func (ai *AuthInterceptor) StreamServerInterceptor() grpc.StreamServerInterceptor {
	return func(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		if _, err := ai.authorize(ss.Context(), info.FullMethod); err != nil {
			return err
		}
		return handler(srv, ss)
	}
}

func (ai *AuthInterceptor) authorize(ctx context.Context, method string) (context.Context, error) {
	if ai == nil || ai.auth == nil {
		return ctx, nil
	}
	if _, ok := ai.allow[method]; ok {
		return ctx, nil
	}

	token, err := tokenFromMetadata(ctx)
	if err != nil {
		ai.logger.Warn("gRPC authentication failed", zap.String("method", method), zap.Error(err))
		return ctx, status.Error(codes.Unauthenticated, err.Error())
	}

	identity, err := ai.auth.Authenticate(ctx, token)
	if err != nil {
		logger.WithContext(ctx).Warn("gRPC token validation failed", zap.String("method", method), zap.Error(err))
		return ctx, statusFromAuthError(err)
	}
	return WithIdentity(ctx, identity), nil
}

func statusFromAuthError(err error) error {
	switch {
	case errors.Is(err, usecase.ErrTokenBlacklisted):
		return status.Error(codes.Unauthenticated, "token is blacklisted")
	case errors.Is(err, security.ErrTokenExpired):
		return status.Error(codes.Unauthenticated, "access token expired")
	case errors.Is(err, repository.ErrStoreUnavailable):
		return status.Error(codes.Unavailable, "security store unavailable")
	default:
		return status.Error(codes.Unauthenticated, "could not validate credentials")
	}
}

type identityContextKey struct{}

// WithIdentity returns a derived context carrying the authenticated identity.
func WithIdentity(ctx context.Context, identity domain.Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, identity)
}

// IdentityFromContext extracts the authenticated identity when available.
func IdentityFromContext(ctx context.Context) (domain.Identity, bool) {
	if ctx == nil {
		return domain.Identity{}, false
	}
	identity, ok := ctx.Value(identityContextKey{}).(domain.Identity)
	return identity, ok
}

func tokenFromMetadata(ctx context.Context) (string, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", errors.New("missing metadata")
	}

	values := md.Get(authorizationKey)
	if len(values) == 0 || strings.TrimSpace(values[0]) == "" {
		return "", errors.New("authorization token required")
	}

	value := strings.TrimSpace(values[0])
	if len(value) < len(bearerPrefix) || !strings.EqualFold(value[:len(bearerPrefix)], bearerPrefix) {
		return "", errors.New("invalid authorization header")
	}

	token := strings.TrimSpace(value[len(bearerPrefix):])
	if token == "" {
		return "", errors.New("authorization token required")
	}
	return token, nil
}
