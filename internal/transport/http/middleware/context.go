package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/arklim/authgate/internal/infra/logger"
)

const (
	// RequestIDHeader carries the caller supplied or generated request id.
	RequestIDHeader = "X-Request-ID"
	// TraceIDHeader is the HTTP header name for trace ID
	TraceIDHeader = "X-Trace-ID"
	// TraceIDKey is the gin context key for trace ID
	TraceIDKey = "trace_id"

	requestIDKey = "request_id"
	tracerName   = "github.com/arklim/authgate/internal/transport/http"
)

// Tracing opens a server span per request, continuing any trace propagated by the caller.
func Tracing() gin.HandlerFunc {
	tracer := otel.Tracer(tracerName)
	return func(c *gin.Context) {
		ctx := otel.GetTextMapPropagator().Extract(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))
		ctx, span := tracer.Start(ctx, c.Request.Method+" "+c.Request.URL.Path, trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()

		c.Request = c.Request.WithContext(ctx)
		c.Next()

		span.SetAttributes(
			attribute.String("http.route", c.FullPath()),
			attribute.Int("http.status_code", c.Writer.Status()),
		)
	}
}

// EnrichContext stores request and trace identifiers on the request context and response headers.
func EnrichContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := c.GetHeader(RequestIDHeader)
		if reqID == "" {
			reqID = uuid.NewString()
		}

		traceID := ""
		if sc := trace.SpanContextFromContext(c.Request.Context()); sc.HasTraceID() {
			traceID = sc.TraceID().String()
		} else if traceID = c.GetHeader(TraceIDHeader); traceID == "" {
			traceID = uuid.NewString()
		}

		c.Set(requestIDKey, reqID)
		c.Set(TraceIDKey, traceID)
		c.Header(RequestIDHeader, reqID)
		c.Header(TraceIDHeader, traceID)

		ctx := context.WithValue(c.Request.Context(), logger.RequestIDKey{}, reqID)
		ctx = context.WithValue(ctx, logger.TraceIDKey{}, traceID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// GetTraceID retrieves the trace ID from the context
func GetTraceID(c *gin.Context) string {
	return c.GetString(TraceIDKey)
}

// GetRequestID retrieves the request ID from the context
func GetRequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}
