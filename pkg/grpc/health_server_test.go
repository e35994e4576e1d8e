package grpc

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/example/shopcore/pkg/config"
	"github.com/example/shopcore/pkg/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

type fakeChecker struct {
	mysqlErr error
	mongoErr error
}

func (f *fakeChecker) Health(ctx context.Context) (*service.Health, error) {
	if f.mysqlErr != nil {
		return nil, f.mysqlErr
	}
	if f.mongoErr != nil {
		return nil, f.mongoErr
	}
	return &service.Health{}, nil
}

func (f *fakeChecker) CheckMySQL(ctx context.Context) error { return f.mysqlErr }
func (f *fakeChecker) CheckMongo(ctx context.Context) error { return f.mongoErr }

func dialHealth(t *testing.T, checker HealthChecker) healthpb.HealthClient {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	srv := NewHealthServer(&config.Config{}, checker, zap.NewNop())
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return healthpb.NewHealthClient(conn)
}

func TestHealthCheckPerStore(t *testing.T) {
	client := dialHealth(t, &fakeChecker{mongoErr: errors.New("no primary")})
	ctx := context.Background()

	tests := []struct {
		service string
		want    healthpb.HealthCheckResponse_ServingStatus
	}{
		{"", healthpb.HealthCheckResponse_NOT_SERVING},
		{ServiceMySQL, healthpb.HealthCheckResponse_SERVING},
		{ServiceMongo, healthpb.HealthCheckResponse_NOT_SERVING},
	}

	for _, tt := range tests {
		resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: tt.service})
		require.NoError(t, err)
		assert.Equal(t, tt.want, resp.GetStatus(), "service %q", tt.service)
	}
}

func TestHealthCheckAllServing(t *testing.T) {
	client := dialHealth(t, &fakeChecker{})

	resp, err := client.Check(context.Background(), &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())
}

func TestHealthCheckUnknownService(t *testing.T) {
	client := dialHealth(t, &fakeChecker{})

	_, err := client.Check(context.Background(), &healthpb.HealthCheckRequest{Service: "redis"})
	assert.Equal(t, codes.NotFound, status.Code(err))
}
