package main

import (
	"context"
	"fmt"
	"time"

	"htbpresence/config"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/sdk/resource"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	"go.uber.org/zap"
)

const serviceName = "htb-presence"

// traceResource describes this process in exported spans.
func traceResource(cfg *config.Config) *resource.Resource {
	return resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceNameKey.String(serviceName),
		semconv.DeploymentEnvironmentKey.String(cfg.Environment),
		attribute.String("presence.backend", cfg.Backend),
		attribute.String("htb.api_base", cfg.APIBase),
	)
}

// setupTracing installs a Jaeger-backed tracer provider when
// cfg.JaegerEndpoint is set. The returned func flushes pending spans.
func setupTracing(cfg *config.Config, logger *zap.Logger) (func(), error) {
	if cfg.JaegerEndpoint == "" {
		return func() {}, nil
	}

	exp, err := jaeger.New(jaeger.WithCollectorEndpoint(
		jaeger.WithEndpoint(cfg.JaegerEndpoint),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create jaeger exporter: %w", err)
	}

	tp := tracesdk.NewTracerProvider(
		tracesdk.WithBatcher(exp),
		tracesdk.WithResource(traceResource(cfg)),
	)
	otel.SetTracerProvider(tp)
	logger.Info("tracing enabled",
		zap.String("endpoint", cfg.JaegerEndpoint),
		zap.String("environment", cfg.Environment),
	)

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			logger.Warn("failed to flush traces", zap.Error(err))
		}
	}, nil
}
