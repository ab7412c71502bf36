package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

// Span attributes shared by the donation flow, the provider clients and the
// endpoint resolver
const (
	AttrCampaign      = attribute.Key("donation.campaign")
	AttrScope         = attribute.Key("donation.scope")
	AttrExternalID    = attribute.Key("donation.external_id")
	AttrTransactionID = attribute.Key("donation.transaction_id")
	AttrAmountMinor   = attribute.Key("donation.amount_minor")
	AttrLineItems     = attribute.Key("donation.line_items")
	AttrDemoMode      = attribute.Key("donation.demo_mode")
	AttrProvider      = attribute.Key("gateway.provider")
	AttrOperation     = attribute.Key("gateway.operation")
	AttrBaseURL       = attribute.Key("gateway.base_url")
	AttrAuthMethod    = attribute.Key("gateway.auth_method")
)

// Config holds OpenTelemetry configuration
type Config struct {
	Enabled        bool
	ServiceName    string
	ServiceVersion string
	Environment    string
	CollectorAddr  string
	SampleRatio    float64
}

type tracing struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
}

var global *tracing

// Init installs the tracer used by StartSpan. When disabled spans come from
// the global no-op provider.
func Init(ctx context.Context, cfg *Config) error {
	if cfg == nil {
		cfg = &Config{ServiceName: "donation-service"}
	}
	if !cfg.Enabled {
		global = &tracing{tracer: otel.Tracer(cfg.ServiceName)}
		return nil
	}

	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(cfg.CollectorAddr),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	res, err := newResource(cfg)
	if err != nil {
		return err
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(newSampler(cfg.SampleRatio)),
	)
	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	global = &tracing{provider: provider, tracer: provider.Tracer(cfg.ServiceName)}
	return nil
}

func newResource(cfg *Config) (*resource.Resource, error) {
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
			semconv.DeploymentEnvironment(cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}
	return res, nil
}

// newSampler samples everything unless a ratio in (0,1) is configured
func newSampler(ratio float64) sdktrace.Sampler {
	if ratio > 0 && ratio < 1 {
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
	}
	return sdktrace.AlwaysSample()
}

// Shutdown flushes pending spans
func Shutdown(ctx context.Context) error {
	if global == nil || global.provider == nil {
		return nil
	}
	return global.provider.Shutdown(ctx)
}

// StartSpan starts an internal span carrying attrs
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if global == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return global.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// SetSpanError records err on the span and marks it failed; nil is ignored
func SetSpanError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
