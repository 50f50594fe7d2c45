package transportgrpc

import (
	"fmt"

	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	grpcinterceptors "github.com/arklim/authgate/internal/transport/grpc/interceptors"
)

// ServiceName is the health service name reported for the gateway as a whole.
const ServiceName = "authgate"

// DefaultPublicMethods lists methods reachable without a bearer token.
var DefaultPublicMethods = []string{
	healthpb.Health_Check_FullMethodName,
	healthpb.Health_Watch_FullMethodName,
}

// ServerDependencies encapsulates services required by the gRPC server layer.
type ServerDependencies struct {
	Auth           grpcinterceptors.Authenticator
	Metrics        *grpcinterceptors.GRPCMetrics
	TracerProvider trace.TracerProvider
	Propagators    propagation.TextMapPropagator
	Logger         *zap.Logger
	PublicMethods  []string // methods that don't require authentication
}

// Server bundles the gRPC server with its health reporter.
type Server struct {
	*grpc.Server
	Health *health.Server
}

// NewServer wires the health and reflection services with bearer authentication
// enforced through interceptors.
func NewServer(deps ServerDependencies) (*Server, error) {
	if deps.Auth == nil {
		return nil, fmt.Errorf("authenticator is required")
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	public := deps.PublicMethods
	if public == nil {
		public = DefaultPublicMethods
	}

	authInterceptor := grpcinterceptors.NewAuthInterceptor(deps.Auth, grpcinterceptors.AuthOptions{
		Logger:       logger,
		AllowMethods: public,
	})

	server := grpc.NewServer(
		grpcinterceptors.TracingServerOption(grpcinterceptors.TracingOptions{
			TracerProvider: deps.TracerProvider,
			Propagators:    deps.Propagators,
		}),
		grpc.ChainUnaryInterceptor(
			deps.Metrics.UnaryServerInterceptor(),
			authInterceptor.UnaryServerInterceptor(),
		),
		grpc.ChainStreamInterceptor(
			deps.Metrics.StreamServerInterceptor(),
			authInterceptor.StreamServerInterceptor(),
		),
	)

	healthServer := health.NewServer()
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(server, healthServer)

	// Register reflection service for tools like Postman, grpcurl, etc.
	reflection.Register(server)

	return &Server{Server: server, Health: healthServer}, nil
}

// Shutdown marks every service as not serving and drains in-flight calls.
func (s *Server) Shutdown() {
	if s == nil {
		return
	}
	s.Health.Shutdown()
	s.GracefulStop()
}
