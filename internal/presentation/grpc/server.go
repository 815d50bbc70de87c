package grpc

import (
	"context"
	"fmt"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/reflection"

	"keyshop-server/internal/infrastructure/config"
	otelinfra "keyshop-server/internal/infrastructure/observability/otel"
	"keyshop-server/internal/presentation/grpc/handler"
	"keyshop-server/internal/presentation/grpc/interceptor"
	"keyshop-server/internal/presentation/grpc/keyshopv1"
)

// Server gRPCサーバー
type Server struct {
	server   *grpc.Server
	listener net.Listener
	port     int
	logger   *otelinfra.Logger
}

// NewServer 新しいgRPCサーバーを作成
func NewServer(
	cfg *config.Config,
	logger *otelinfra.Logger,
	metrics *otelinfra.Metrics,
	services handler.Services,
) (*Server, error) {
	port := cfg.Server.GRPCPort
	address := fmt.Sprintf(":%d", port)
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", address, err)
	}

	return NewServerWithListener(cfg, logger, metrics, services, listener, port)
}

// NewServerWithListener リスナーを指定してgRPCサーバーを作成（テスト用）
func NewServerWithListener(
	cfg *config.Config,
	logger *otelinfra.Logger,
	metrics *otelinfra.Metrics,
	services handler.Services,
	listener net.Listener,
	port int,
) (*Server, error) {
	if services.Account == nil || services.Purchase == nil || services.History == nil ||
		services.Inventory == nil || services.Stock == nil || services.Referral == nil {
		return nil, fmt.Errorf("all gRPC services must be provided")
	}

	opts := []grpc.ServerOption{
		grpc.ChainUnaryInterceptor(
			interceptor.ObservabilityInterceptor(logger, metrics),
			interceptor.AuthInterceptor(&cfg.JWT, logger, keyshopv1.IsUserMethod),
			interceptor.APIKeyInterceptor(&cfg.AdminAPI, logger, keyshopv1.IsAdminMethod),
		),
		grpc.KeepaliveParams(keepalive.ServerParameters{
			MaxConnectionIdle:     15 * time.Second,
			MaxConnectionAge:      30 * time.Second,
			MaxConnectionAgeGrace: 5 * time.Second,
			Time:                  5 * time.Second,
			Timeout:               1 * time.Second,
		}),
		grpc.KeepaliveEnforcementPolicy(keepalive.EnforcementPolicy{
			MinTime:             5 * time.Second,
			PermitWithoutStream: true,
		}),
	}

	grpcServer := grpc.NewServer(opts...)
	keyshopv1.RegisterKeyShopServer(grpcServer, handler.NewKeyShopHandler(services, logger))

	// リフレクションを有効化（開発環境用）
	if cfg.Environment == "development" {
		reflection.Register(grpcServer)
	}

	return &Server{
		server:   grpcServer,
		listener: listener,
		port:     port,
		logger:   logger,
	}, nil
}

// Start サーバーを起動（停止するまでブロック）
func (s *Server) Start() error {
	s.logger.Info(context.Background(), "gRPC server starting", map[string]interface{}{"port": s.port})
	if err := s.server.Serve(s.listener); err != nil && err != grpc.ErrServerStopped {
		return fmt.Errorf("failed to serve: %w", err)
	}
	return nil
}

// Stop サーバーを停止
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info(ctx, "Stopping gRPC server", nil)

	stopped := make(chan struct{})
	go func() {
		s.server.GracefulStop()
		close(stopped)
	}()

	select {
	case <-stopped:
		s.logger.Info(ctx, "gRPC server stopped", nil)
		return nil
	case <-ctx.Done():
		// タイムアウトした場合は強制停止
		s.logger.Warn(ctx, "gRPC server shutdown timeout, forcing stop", nil)
		s.server.Stop()
		return ctx.Err()
	}
}

// Port サーバーのポート番号を返す
func (s *Server) Port() int {
	return s.port
}
