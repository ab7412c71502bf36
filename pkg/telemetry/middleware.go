package telemetry

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

// TraceIDHeader echoes the trace id back to the caller
const TraceIDHeader = "X-Trace-ID"

// MiddlewareConfig configures TracingMiddleware
type MiddlewareConfig struct {
	ServiceName string
	// ScopeHeader, when set, is copied onto the span as AttrScope
	ScopeHeader string
	// SkipPaths are served without a span (health probes)
	SkipPaths []string
}

// TracingMiddleware opens a server span per request, continuing any trace
// propagated by the caller
func TracingMiddleware(cfg MiddlewareConfig) gin.HandlerFunc {
	tracer := otel.Tracer(cfg.ServiceName)
	skip := make(map[string]struct{}, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		skip[p] = struct{}{}
	}

	return func(c *gin.Context) {
		if _, ok := skip[c.Request.URL.Path]; ok {
			c.Next()
			return
		}

		ctx := otel.GetTextMapPropagator().Extract(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		attrs := []attribute.KeyValue{
			semconv.HTTPMethod(c.Request.Method),
			semconv.HTTPRoute(route),
			semconv.UserAgentOriginal(c.Request.UserAgent()),
			attribute.String("http.client_ip", c.ClientIP()),
		}
		if cfg.ScopeHeader != "" {
			if scope := c.GetHeader(cfg.ScopeHeader); scope != "" {
				attrs = append(attrs, AttrScope.String(scope))
			}
		}

		ctx, span := tracer.Start(ctx, c.Request.Method+" "+route,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(attrs...),
		)
		defer span.End()

		if sc := span.SpanContext(); sc.HasTraceID() {
			c.Header(TraceIDHeader, sc.TraceID().String())
		}

		c.Request = c.Request.WithContext(ctx)
		c.Next()

		status := c.Writer.Status()
		span.SetAttributes(semconv.HTTPStatusCode(status))
		if len(c.Errors) > 0 {
			span.RecordError(c.Errors.Last())
		}
		if status >= 500 {
			span.SetStatus(codes.Error, "server error")
		}
	}
}
