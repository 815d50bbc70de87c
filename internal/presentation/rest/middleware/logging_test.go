package middleware

import (
	"errors"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggingMiddleware(t *testing.T) {
	tests := []struct {
		name          string
		handler       echo.HandlerFunc
		userID        string
		wantErr       bool
		expectedLevel string
	}{
		{
			name:          "正常系: 2xxはINFO",
			handler:       func(c echo.Context) error { return c.String(http.StatusOK, "ok") },
			userID:        "user123",
			expectedLevel: "INFO",
		},
		{
			name:          "正常系: 4xxはWARN",
			handler:       func(c echo.Context) error { return c.NoContent(http.StatusNotFound) },
			expectedLevel: "WARN",
		},
		{
			name:          "正常系: 5xxはERROR",
			handler:       func(c echo.Context) error { return c.NoContent(http.StatusServiceUnavailable) },
			expectedLevel: "ERROR",
		},
		{
			name:          "異常系: ハンドラーのエラーはそのまま返す",
			handler:       func(c echo.Context) error { return errors.New("test error") },
			wantErr:       true,
			expectedLevel: "ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, buf := newBufferLogger()
			c, _ := newTestContext(http.MethodGet, "/api/v1/stock")
			c.Response().Header().Set(echo.HeaderXRequestID, "req-1")
			if tt.userID != "" {
				c.Set(UserIDKey, tt.userID)
			}

			err := LoggingMiddleware(logger)(tt.handler)(c)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
			}

			entries := decodeLogEntries(t, buf)
			require.Len(t, entries, 1)
			assert.Equal(t, tt.expectedLevel, entries[0].Level)
			assert.Equal(t, "/api/v1/stock", entries[0].Fields["path"])
			assert.Equal(t, "req-1", entries[0].Fields["request_id"])
			if tt.userID != "" {
				assert.Equal(t, tt.userID, entries[0].Fields["user_id"])
			} else {
				assert.NotContains(t, entries[0].Fields, "user_id")
			}
		})
	}
}
