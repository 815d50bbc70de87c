package interceptor

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	otelinfra "keyshop-server/internal/infrastructure/observability/otel"
)

// metadataCarrier gRPCメタデータをTextMapCarrierとして扱う
type metadataCarrier metadata.MD

var _ propagation.TextMapCarrier = metadataCarrier(nil)

func (c metadataCarrier) Get(key string) string {
	values := metadata.MD(c).Get(key)
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

func (c metadataCarrier) Set(key, value string) {
	metadata.MD(c).Set(key, value)
}

func (c metadataCarrier) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	return keys
}

// isServerError サーバー側の障害として扱うコード
func isServerError(code codes.Code) bool {
	switch code {
	case codes.Internal, codes.Unavailable, codes.Unknown, codes.DataLoss, codes.DeadlineExceeded:
		return true
	}
	return false
}

// ObservabilityInterceptor トレース・メトリクス・アクセスログを記録する
// 認証インターセプターより外側に置き、認証失敗も記録する。metricsはnil可
func ObservabilityInterceptor(logger *otelinfra.Logger, metrics *otelinfra.Metrics) grpc.UnaryServerInterceptor {
	tracer := otel.Tracer("keyshop-server")

	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		start := time.Now()

		if md, ok := metadata.FromIncomingContext(ctx); ok {
			ctx = otel.GetTextMapPropagator().Extract(ctx, metadataCarrier(md))
		}
		ctx, span := tracer.Start(ctx, info.FullMethod,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("rpc.system", "grpc"),
				attribute.String("rpc.method", info.FullMethod),
			),
		)
		defer span.End()

		resp, err := handler(ctx, req)

		code := status.Code(err)
		elapsed := time.Since(start)
		span.SetAttributes(attribute.String("rpc.grpc.status_code", code.String()))

		if metrics != nil {
			metrics.RecordRequest(ctx, "GRPC", info.FullMethod)
			metrics.RecordResponseTime(ctx, "GRPC", info.FullMethod, elapsed.Seconds())
			switch {
			case err == nil:
			case isServerError(code):
				metrics.RecordError(ctx, "server_error")
			default:
				metrics.RecordError(ctx, "client_error")
			}
		}

		fields := map[string]interface{}{
			"method":      info.FullMethod,
			"code":        code.String(),
			"duration_ms": elapsed.Milliseconds(),
		}

		switch {
		case err == nil:
			logger.Info(ctx, "gRPC request", fields)
		case isServerError(code):
			span.RecordError(err)
			span.SetStatus(otelcodes.Error, err.Error())
			logger.Error(ctx, "gRPC request", err, fields)
		default:
			logger.Warn(ctx, "gRPC request", fields)
		}

		return resp, err
	}
}
