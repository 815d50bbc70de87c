package auth

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"keyshop-server/internal/domain/errs"
	"keyshop-server/internal/infrastructure/config"
	otelinfra "keyshop-server/internal/infrastructure/observability/otel"
)

func testJWTConfig() *config.JWTConfig {
	return &config.JWTConfig{
		Secret:     "test-secret-key",
		Issuer:     "test-issuer",
		Expiration: 24 * time.Hour,
	}
}

func TestAuthApplicationService_GenerateToken(t *testing.T) {
	tests := []struct {
		name      string
		req       *GenerateTokenRequest
		wantError error
	}{
		{
			name: "正常系: トークンを生成",
			req:  &GenerateTokenRequest{UserID: "123456789"},
		},
		{
			name:      "異常系: ユーザーIDが空",
			req:       &GenerateTokenRequest{UserID: ""},
			wantError: errs.ErrValidation,
		},
		{
			name:      "異常系: ユーザーIDに使用できない文字",
			req:       &GenerateTokenRequest{UserID: "user id"},
			wantError: errs.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := otelinfra.NewLoggerWithWriter(otel.Tracer("test"), io.Discard)
			cfg := testJWTConfig()
			svc := NewAuthApplicationService(cfg, logger)

			got, err := svc.GenerateToken(context.Background(), tt.req)

			if tt.wantError != nil {
				assert.ErrorIs(t, err, tt.wantError)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, got.Token)
			assert.Equal(t, int64(86400), got.ExpiresIn)
			assert.Equal(t, "Bearer", got.TokenType)

			userID, err := ParseUserID(cfg, got.Token)
			require.NoError(t, err)
			assert.Equal(t, tt.req.UserID, userID)
		})
	}
}

func TestParseUserID(t *testing.T) {
	cfg := testJWTConfig()
	sign := func(t *testing.T, method jwt.SigningMethod, key interface{}, claims jwt.MapClaims) string {
		t.Helper()
		s, err := jwt.NewWithClaims(method, claims).SignedString(key)
		require.NoError(t, err)
		return s
	}
	future := time.Now().Add(time.Hour).Unix()

	tests := []struct {
		name    string
		token   func(t *testing.T) string
		want    string
		wantErr bool
	}{
		{
			name: "正常系: 有効なトークン",
			token: func(t *testing.T) string {
				return sign(t, jwt.SigningMethodHS256, []byte(cfg.Secret), jwt.MapClaims{
					"user_id": "user123", "iss": cfg.Issuer, "exp": future,
				})
			},
			want: "user123",
		},
		{
			name: "異常系: 署名鍵が異なる",
			token: func(t *testing.T) string {
				return sign(t, jwt.SigningMethodHS256, []byte("other"), jwt.MapClaims{
					"user_id": "user123", "iss": cfg.Issuer, "exp": future,
				})
			},
			wantErr: true,
		},
		{
			name: "異常系: 期限切れ",
			token: func(t *testing.T) string {
				return sign(t, jwt.SigningMethodHS256, []byte(cfg.Secret), jwt.MapClaims{
					"user_id": "user123", "iss": cfg.Issuer, "exp": time.Now().Add(-time.Hour).Unix(),
				})
			},
			wantErr: true,
		},
		{
			name: "異常系: expなし",
			token: func(t *testing.T) string {
				return sign(t, jwt.SigningMethodHS256, []byte(cfg.Secret), jwt.MapClaims{
					"user_id": "user123", "iss": cfg.Issuer,
				})
			},
			wantErr: true,
		},
		{
			name: "異常系: 発行者が異なる",
			token: func(t *testing.T) string {
				return sign(t, jwt.SigningMethodHS256, []byte(cfg.Secret), jwt.MapClaims{
					"user_id": "user123", "iss": "someone-else", "exp": future,
				})
			},
			wantErr: true,
		},
		{
			name: "異常系: user_idクレームなし",
			token: func(t *testing.T) string {
				return sign(t, jwt.SigningMethodHS256, []byte(cfg.Secret), jwt.MapClaims{
					"iss": cfg.Issuer, "exp": future,
				})
			},
			wantErr: true,
		},
		{
			name:    "異常系: 形式不正",
			token:   func(t *testing.T) string { return "not-a-jwt" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseUserID(cfg, tt.token(t))
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrInvalidToken))
				assert.Empty(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
