package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	otelinfra "keyshop-server/internal/infrastructure/observability/otel"
)

func newTestLogger() *otelinfra.Logger {
	return otelinfra.NewLoggerWithWriter(noop.NewTracerProvider().Tracer("test"), io.Discard)
}

func newBufferLogger() (*otelinfra.Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	return otelinfra.NewLoggerWithWriter(noop.NewTracerProvider().Tracer("test"), buf), buf
}

func newTestContext(method, target string) (echo.Context, *httptest.ResponseRecorder) {
	rec := httptest.NewRecorder()
	return echo.New().NewContext(httptest.NewRequest(method, target, nil), rec), rec
}

func decodeLogEntries(t *testing.T, buf *bytes.Buffer) []otelinfra.LogEntry {
	t.Helper()
	var entries []otelinfra.LogEntry
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry otelinfra.LogEntry
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		entries = append(entries, entry)
	}
	return entries
}

func decodeErrorResponse(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}
