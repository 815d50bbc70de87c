package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// TracingMiddleware OpenTelemetryトレーシングミドルウェア
func TracingMiddleware() echo.MiddlewareFunc {
	tracer := otel.Tracer("keyshop-server")

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			ctx := otel.GetTextMapPropagator().Extract(req.Context(), propagation.HeaderCarrier(req.Header))

			ctx, span := tracer.Start(ctx, req.Method+" "+c.Path(),
				trace.WithSpanKind(trace.SpanKindServer),
			)
			defer span.End()

			span.SetAttributes(
				attribute.String("http.method", req.Method),
				attribute.String("http.route", c.Path()),
				attribute.String("http.target", req.URL.Path),
				attribute.String("http.user_agent", req.UserAgent()),
			)

			c.SetRequest(req.WithContext(ctx))

			err := next(c)

			statusCode := c.Response().Status
			span.SetAttributes(attribute.Int("http.status_code", statusCode))
			if userID, ok := UserIDFrom(c); ok {
				span.SetAttributes(attribute.String("user_id", userID))
			}
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			} else if statusCode >= http.StatusInternalServerError {
				span.SetStatus(codes.Error, http.StatusText(statusCode))
			}
			return err
		}
	}
}
