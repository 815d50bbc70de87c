package interceptor

import (
	"io"

	"go.opentelemetry.io/otel/trace/noop"

	otelinfra "keyshop-server/internal/infrastructure/observability/otel"
)

const (
	userMethod  = "/keyshop.v1.KeyShopService/GetProfile"
	adminMethod = "/keyshop.v1.KeyShopService/BanUser"
)

func newTestLogger() *otelinfra.Logger {
	return otelinfra.NewLoggerWithWriter(noop.NewTracerProvider().Tracer("test"), io.Discard)
}

func onlyMethod(method string) func(string) bool {
	return func(fullMethod string) bool { return fullMethod == method }
}
