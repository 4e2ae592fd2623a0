package tracing

import (
	"context"
	"fmt"
	"time"

	"coach_admin_backend/internal/config"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.uber.org/zap"
)

// Tracer reports whether OTLP tracing is active for this process.
type Tracer struct {
	Enabled     bool
	ServiceName string
}

// New sets up a global tracer provider when OTEL_EXPORTER_OTLP_ENDPOINT is set.
// The returned cleanup flushes pending spans.
func New(cfg *config.Config, logger *zap.Logger) (*Tracer, func(), error) {
	if cfg.OTLPEndpoint == "" {
		logger.Info("OTLP endpoint not configured, tracing disabled")
		return &Tracer{ServiceName: cfg.ServiceName}, func() {}, nil
	}

	ctx := context.Background()
	exp, err := otlptracegrpc.New(
		ctx,
		otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("create otlp grpc exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
		),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp, sdktrace.WithBatchTimeout(2*time.Second)),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(
		propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		),
	)

	logger.Info("OTLP tracing enabled", zap.String("endpoint", cfg.OTLPEndpoint), zap.String("service", cfg.ServiceName))
	cleanup := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			logger.Error("Failed to shut down tracer provider", zap.Error(err))
		}
	}
	return &Tracer{Enabled: true, ServiceName: cfg.ServiceName}, cleanup, nil
}
