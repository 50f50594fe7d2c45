package interceptors

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const healthService = "grpc.health.v1.Health"

func TestGRPCMetricsUnaryInterceptorRecordsMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics, err := NewGRPCMetrics(GRPCMetricsOptions{Registerer: registry})
	if err != nil {
		t.Fatalf("failed to create metrics: %v", err)
	}

	interceptor := metrics.UnaryServerInterceptor()

	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		time.Sleep(5 * time.Millisecond)
		return "ok", nil
	}

	info := &grpc.UnaryServerInfo{FullMethod: "/" + healthService + "/Check"}

	if _, err := interceptor(context.Background(), struct{}{}, info, handler); err != nil {
		t.Fatalf("unexpected handler error: %v", err)
	}

	labels := prometheus.Labels{"service": healthService, "method": "Check", "code": codes.OK.String()}

	if got := testutil.ToFloat64(metrics.requests.With(labels)); got != 1 {
		t.Fatalf("expected request counter 1, got %f", got)
	}

	if inflight := testutil.ToFloat64(metrics.inFlight.WithLabelValues(healthService)); inflight != 0 {
		t.Fatalf("expected in-flight gauge 0, got %f", inflight)
	}

	if samples := testutil.CollectAndCount(metrics.duration); samples == 0 {
		t.Fatalf("expected histogram to record observations")
	}
}

func TestGRPCMetricsUnaryInterceptorPropagatesErrors(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics, err := NewGRPCMetrics(GRPCMetricsOptions{Registerer: registry})
	if err != nil {
		t.Fatalf("failed to create metrics: %v", err)
	}

	interceptor := metrics.UnaryServerInterceptor()

	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return nil, status.Error(codes.Unauthenticated, "token blacklisted")
	}

	info := &grpc.UnaryServerInfo{FullMethod: "/authgate.v1.Session/Describe"}

	if _, err := interceptor(context.Background(), struct{}{}, info, handler); status.Code(err) != codes.Unauthenticated {
		t.Fatalf("expected unauthenticated, got %v", err)
	}

	labels := prometheus.Labels{"service": "authgate.v1.Session", "method": "Describe", "code": codes.Unauthenticated.String()}
	if got := testutil.ToFloat64(metrics.requests.With(labels)); got != 1 {
		t.Fatalf("expected request counter 1 for rejected call, got %f", got)
	}
}

func TestGRPCMetricsStreamInterceptorRecordsMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics, err := NewGRPCMetrics(GRPCMetricsOptions{Registerer: registry})
	if err != nil {
		t.Fatalf("failed to create metrics: %v", err)
	}

	info := &grpc.StreamServerInfo{FullMethod: "/" + healthService + "/Watch", IsServerStream: true}
	handler := func(srv interface{}, stream grpc.ServerStream) error { return nil }

	stream := &mockServerStream{ctx: context.Background()}
	if err := metrics.StreamServerInterceptor()(nil, stream, info, handler); err != nil {
		t.Fatalf("unexpected stream error: %v", err)
	}

	labels := prometheus.Labels{"service": healthService, "method": "Watch", "code": codes.OK.String()}
	if got := testutil.ToFloat64(metrics.requests.With(labels)); got != 1 {
		t.Fatalf("expected request counter 1, got %f", got)
	}
}

func TestNewGRPCMetricsReusesRegisteredCollectors(t *testing.T) {
	registry := prometheus.NewRegistry()
	first, err := NewGRPCMetrics(GRPCMetricsOptions{Registerer: registry})
	if err != nil {
		t.Fatalf("failed to create metrics: %v", err)
	}
	second, err := NewGRPCMetrics(GRPCMetricsOptions{Registerer: registry})
	if err != nil {
		t.Fatalf("second registration failed: %v", err)
	}
	if first.requests != second.requests {
		t.Fatalf("expected the existing request counter to be reused")
	}
}

func TestSplitFullMethod(t *testing.T) {
	cases := []struct {
		in              string
		service, method string
	}{
		{"/grpc.health.v1.Health/Check", "grpc.health.v1.Health", "Check"},
		{"", "unknown", "unknown"},
		{"/Check", "Check", "unknown"},
		{"/svc/", "svc", "unknown"},
	}
	for _, tc := range cases {
		service, method := splitFullMethod(tc.in)
		if service != tc.service || method != tc.method {
			t.Fatalf("splitFullMethod(%q) = %q, %q; want %q, %q", tc.in, service, method, tc.service, tc.method)
		}
	}
}

type mockServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (m *mockServerStream) Context() context.Context {
	return m.ctx
}
