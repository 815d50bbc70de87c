package interceptor

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"keyshop-server/internal/infrastructure/config"
	otelinfra "keyshop-server/internal/infrastructure/observability/otel"
	"keyshop-server/internal/presentation/access"
)

// APIKeyMetadata 運用者APIキーのメタデータ名
const APIKeyMetadata = "x-api-key"

// APIKeyInterceptor APIキー認証インターセプター
// applies が true を返すメソッドだけを検証する。IP制限は接続元アドレスで判定する
func APIKeyInterceptor(cfg *config.AdminAPIConfig, logger *otelinfra.Logger, applies func(fullMethod string) bool) grpc.UnaryServerInterceptor {
	allowed, invalid := access.ParseAllowList(cfg.AllowedIPs)
	for _, entry := range invalid {
		logger.Warn(context.Background(), "Ignoring invalid allowed IP entry", map[string]interface{}{"entry": entry})
	}

	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		if applies != nil && !applies(info.FullMethod) {
			return handler(ctx, req)
		}

		if !cfg.Enabled {
			logger.Warn(ctx, "Admin API is disabled", nil)
			return nil, status.Error(codes.PermissionDenied, "admin API is disabled")
		}

		md, ok := metadata.FromIncomingContext(ctx)
		if !ok {
			logger.Warn(ctx, "Missing metadata", nil)
			return nil, status.Error(codes.Unauthenticated, "missing metadata")
		}

		apiKeys := md.Get(APIKeyMetadata)
		if len(apiKeys) == 0 {
			logger.Warn(ctx, "Missing X-API-Key metadata", nil)
			return nil, status.Error(codes.Unauthenticated, "missing X-API-Key metadata")
		}

		if !access.ValidAPIKey(cfg.APIKey, apiKeys[0]) {
			logger.Warn(ctx, "Invalid API key", map[string]interface{}{"method": info.FullMethod})
			return nil, status.Error(codes.Unauthenticated, "invalid API key")
		}

		if len(cfg.AllowedIPs) > 0 {
			clientIP := peerIP(ctx)
			if !allowed.Contains(clientIP) {
				logger.Warn(ctx, "IP address not allowed", map[string]interface{}{
					"ip": clientIP,
				})
				return nil, status.Error(codes.PermissionDenied, "IP address not allowed")
			}
		}

		return handler(ctx, req)
	}
}

// peerIP 接続元のIPアドレス（取得できなければ空文字）
func peerIP(ctx context.Context) string {
	p, ok := peer.FromContext(ctx)
	if !ok || p.Addr == nil {
		return ""
	}
	return access.HostFromAddr(p.Addr.String())
}
