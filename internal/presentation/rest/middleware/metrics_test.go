package middleware

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	otelinfra "keyshop-server/internal/infrastructure/observability/otel"
)

// errorCounts errors_totalをerror_type別に集計
func errorCounts(t *testing.T, reader *sdkmetric.ManualReader) map[string]int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]int64)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "errors_total" {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			for _, dp := range sum.DataPoints {
				v, _ := dp.Attributes.Value("error_type")
				out[v.AsString()] += dp.Value
			}
		}
	}
	return out
}

func TestMetricsMiddleware(t *testing.T) {
	tests := []struct {
		name     string
		handler  echo.HandlerFunc
		expected map[string]int64
	}{
		{
			name:     "正常系: 成功はエラーに数えない",
			handler:  func(c echo.Context) error { return c.String(http.StatusOK, "ok") },
			expected: map[string]int64{},
		},
		{
			name:     "正常系: 4xxはclient_error",
			handler:  func(c echo.Context) error { return c.NoContent(http.StatusConflict) },
			expected: map[string]int64{"client_error": 1},
		},
		{
			name:     "正常系: 5xxはserver_error",
			handler:  func(c echo.Context) error { return c.NoContent(http.StatusInternalServerError) },
			expected: map[string]int64{"server_error": 1},
		},
		{
			name:     "異常系: 未処理のエラーはserver_error",
			handler:  func(c echo.Context) error { return errors.New("boom") },
			expected: map[string]int64{"server_error": 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader := sdkmetric.NewManualReader()
			otel.SetMeterProvider(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)))
			metrics, err := otelinfra.NewMetrics("test-meter")
			require.NoError(t, err)

			c, _ := newTestContext(http.MethodGet, "/api/v1/stock")
			c.SetPath("/api/v1/stock")

			_ = MetricsMiddleware(metrics)(tt.handler)(c)

			assert.Equal(t, tt.expected, errorCounts(t, reader))
		})
	}
}
