package otel

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"

	"keyshop-server/internal/infrastructure/config"
)

// ShutdownFunc プロバイダーの終了処理
type ShutdownFunc func(context.Context) error

func noopShutdown(context.Context) error { return nil }

// Init トレーサーとメーターを初期化し、両方を終了する関数を返す
// 無効時・エクスポーターが "none" の場合はグローバルのNoopプロバイダーのまま
func Init(ctx context.Context, cfg *config.OpenTelemetryConfig) (ShutdownFunc, error) {
	if !cfg.Enabled {
		return noopShutdown, nil
	}

	res, err := newResource(ctx, cfg)
	if err != nil {
		return nil, err
	}

	shutdownTracer, err := initTracer(ctx, cfg, res)
	if err != nil {
		return nil, err
	}
	shutdownMeter, err := initMeter(ctx, cfg, res)
	if err != nil {
		_ = shutdownTracer(ctx)
		return nil, err
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return func(ctx context.Context) error {
		return errors.Join(shutdownTracer(ctx), shutdownMeter(ctx))
	}, nil
}

func newResource(ctx context.Context, cfg *config.OpenTelemetryConfig) (*resource.Resource, error) {
	res, err := resource.New(
		ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(cfg.ServiceName),
			semconv.ServiceVersionKey.String(cfg.ServiceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}
	return res, nil
}

func initTracer(ctx context.Context, cfg *config.OpenTelemetryConfig, res *resource.Resource) (ShutdownFunc, error) {
	switch cfg.TraceExporter {
	case "otlp":
		opts := []otlptracehttp.Option{otlptracehttp.WithEndpointURL(cfg.OTLPEndpoint)}
		if cfg.OTLPInsecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		exporter, err := otlptracehttp.New(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP trace exporter: %w", err)
		}
		tp := sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exporter),
			sdktrace.WithResource(res),
		)
		otel.SetTracerProvider(tp)
		return tp.Shutdown, nil
	case "none", "":
		return noopShutdown, nil
	default:
		return nil, fmt.Errorf("unsupported trace exporter: %s", cfg.TraceExporter)
	}
}

func initMeter(ctx context.Context, cfg *config.OpenTelemetryConfig, res *resource.Resource) (ShutdownFunc, error) {
	switch cfg.MetricsExporter {
	case "otlp":
		opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpointURL(cfg.OTLPEndpoint)}
		if cfg.OTLPInsecure {
			opts = append(opts, otlpmetrichttp.WithInsecure())
		}
		exporter, err := otlpmetrichttp.New(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP metric exporter: %w", err)
		}
		mp := sdkmetric.NewMeterProvider(
			sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter)),
			sdkmetric.WithResource(res),
		)
		otel.SetMeterProvider(mp)
		return mp.Shutdown, nil
	case "none", "":
		return noopShutdown, nil
	default:
		return nil, fmt.Errorf("unsupported metrics exporter: %s", cfg.MetricsExporter)
	}
}
