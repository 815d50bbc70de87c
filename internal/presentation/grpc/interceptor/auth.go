package interceptor

import (
	"context"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	authapp "keyshop-server/internal/application/auth"
	"keyshop-server/internal/infrastructure/config"
	otelinfra "keyshop-server/internal/infrastructure/observability/otel"
)

type userIDKey struct{}

// ContextWithUserID ユーザーIDをコンテキストに設定
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey{}, userID)
}

// UserIDFromContext 認証済みユーザーIDを取得
func UserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(userIDKey{}).(string)
	return userID, ok && userID != ""
}

// AuthInterceptor JWT認証インターセプター
// applies が true を返すメソッドだけを検証する
func AuthInterceptor(cfg *config.JWTConfig, logger *otelinfra.Logger, applies func(fullMethod string) bool) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		if applies != nil && !applies(info.FullMethod) {
			return handler(ctx, req)
		}

		md, ok := metadata.FromIncomingContext(ctx)
		if !ok {
			logger.Warn(ctx, "Missing metadata", map[string]interface{}{"method": info.FullMethod})
			return nil, status.Error(codes.Unauthenticated, "missing metadata")
		}

		authHeaders := md.Get("authorization")
		if len(authHeaders) == 0 {
			logger.Warn(ctx, "Missing authorization header", map[string]interface{}{"method": info.FullMethod})
			return nil, status.Error(codes.Unauthenticated, "missing authorization header")
		}

		scheme, tokenString, found := strings.Cut(authHeaders[0], " ")
		if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(tokenString) == "" {
			logger.Warn(ctx, "Invalid authorization header format", map[string]interface{}{"method": info.FullMethod})
			return nil, status.Error(codes.Unauthenticated, "invalid authorization header format")
		}

		userID, err := authapp.ParseUserID(cfg, strings.TrimSpace(tokenString))
		if err != nil {
			logger.Warn(ctx, "Invalid token", map[string]interface{}{
				"method": info.FullMethod,
				"error":  err.Error(),
			})
			return nil, status.Error(codes.Unauthenticated, "invalid or expired token")
		}

		return handler(ContextWithUserID(ctx, userID), req)
	}
}
