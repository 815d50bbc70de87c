package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"keyshop-server/internal/domain/user"
	"keyshop-server/internal/infrastructure/config"
	otelinfra "keyshop-server/internal/infrastructure/observability/otel"
)

// ErrInvalidToken トークンが無効または期限切れ
var ErrInvalidToken = errors.New("invalid or expired token")

const userIDClaim = "user_id"

// AuthApplicationService 認証アプリケーションサービス
type AuthApplicationService struct {
	jwtConfig *config.JWTConfig
	logger    *otelinfra.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// NewAuthApplicationService 新しいAuthApplicationServiceを作成
func NewAuthApplicationService(jwtConfig *config.JWTConfig, logger *otelinfra.Logger) *AuthApplicationService {
	return &AuthApplicationService{
		jwtConfig: jwtConfig,
		logger:    logger,
		tracer:    otel.Tracer("auth-service"),
		now:       time.Now,
	}
}

// GenerateToken ユーザーIDを埋め込んだJWTを発行
func (s *AuthApplicationService) GenerateToken(ctx context.Context, req *GenerateTokenRequest) (*GenerateTokenResponse, error) {
	ctx, span := s.tracer.Start(ctx, "AuthApplicationService.GenerateToken")
	defer span.End()

	span.SetAttributes(attribute.String("user_id", req.UserID))

	if err := user.ValidateUserID(req.UserID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.Warn(ctx, "Invalid user id for token", map[string]interface{}{
			"user_id": req.UserID,
		})
		return nil, err
	}

	now := s.now()
	expiresAt := now.Add(s.jwtConfig.Expiration)

	claims := jwt.MapClaims{
		userIDClaim: req.UserID,
		"iss":       s.jwtConfig.Issuer,
		"iat":       now.Unix(),
		"exp":       expiresAt.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.jwtConfig.Secret))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.Error(ctx, "Failed to generate token", err, map[string]interface{}{
			"user_id": req.UserID,
		})
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	s.logger.Info(ctx, "Token generated", map[string]interface{}{
		"user_id":    req.UserID,
		"expires_at": expiresAt.Unix(),
	})
	span.SetStatus(codes.Ok, "")

	return &GenerateTokenResponse{
		Token:     tokenString,
		ExpiresIn: int64(s.jwtConfig.Expiration.Seconds()),
		TokenType: "Bearer",
	}, nil
}

// ParseUserID 署名・有効期限・発行者を検証し、トークンのユーザーIDを返す
// RESTミドルウェアとgRPCインターセプターの両方から使う
func ParseUserID(cfg *config.JWTConfig, tokenString string) (string, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg(), jwt.SigningMethodHS384.Alg(), jwt.SigningMethodHS512.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(cfg.Secret), nil
	}, opts...)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return "", ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("%w: unexpected claims", ErrInvalidToken)
	}
	userID, ok := claims[userIDClaim].(string)
	if !ok || user.ValidateUserID(userID) != nil {
		return "", fmt.Errorf("%w: missing user_id", ErrInvalidToken)
	}
	return userID, nil
}
