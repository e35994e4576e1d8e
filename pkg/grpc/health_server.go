package grpc

import (
	"context"
	"fmt"
	"net"

	"github.com/example/shopcore/pkg/config"
	"github.com/example/shopcore/pkg/service"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"
)

// Service names accepted by Check besides "" (both stores).
const (
	ServiceMySQL = "mysql"
	ServiceMongo = "mongo"
)

type HealthChecker interface {
	Health(ctx context.Context) (*service.Health, error)
	CheckMySQL(ctx context.Context) error
	CheckMongo(ctx context.Context) error
}

// HealthServer answers grpc.health.v1 checks by probing the stores on every
// call. Unlike /health, a single store can be checked on its own.
type HealthServer struct {
	healthpb.UnimplementedHealthServer
	checker HealthChecker
	logger  *zap.Logger
	config  *config.Config
	srv     *grpc.Server
}

func NewHealthServer(cfg *config.Config, checker HealthChecker, logger *zap.Logger) *HealthServer {
	s := &HealthServer{
		checker: checker,
		logger:  logger,
		config:  cfg,
		srv:     grpc.NewServer(),
	}
	healthpb.RegisterHealthServer(s.srv, s)
	reflection.Register(s.srv)
	return s
}

func (s *HealthServer) Check(ctx context.Context, req *healthpb.HealthCheckRequest) (*healthpb.HealthCheckResponse, error) {
	var err error
	switch req.GetService() {
	case "":
		_, err = s.checker.Health(ctx)
	case ServiceMySQL:
		err = s.checker.CheckMySQL(ctx)
	case ServiceMongo:
		err = s.checker.CheckMongo(ctx)
	default:
		return nil, status.Errorf(codes.NotFound, "unknown service %q", req.GetService())
	}

	if err != nil {
		s.logger.Warn("Health check failed", zap.String("service", req.GetService()), zap.Error(err))
		return &healthpb.HealthCheckResponse{Status: healthpb.HealthCheckResponse_NOT_SERVING}, nil
	}
	return &healthpb.HealthCheckResponse{Status: healthpb.HealthCheckResponse_SERVING}, nil
}

func (s *HealthServer) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.GRPCPort)
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	s.logger.Info("gRPC health service started", zap.String("address", addr))
	return s.Serve(lis)
}

func (s *HealthServer) Serve(lis net.Listener) error {
	return s.srv.Serve(lis)
}

func (s *HealthServer) Stop() {
	s.srv.GracefulStop()
}
