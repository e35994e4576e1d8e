package grpc

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/example/shopcore/pkg/discovery"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// RegistryName is the etcd service name the gRPC endpoint of server is
// registered under.
func RegistryName(server string) string {
	return server + "-grpc"
}

type Discoverer interface {
	Discover(ctx context.Context, serviceName string) ([]*discovery.ServiceInstance, error)
}

// InstanceStatus is the outcome of probing one registered instance.
type InstanceStatus struct {
	Addr   string
	Status healthpb.HealthCheckResponse_ServingStatus
	Err    error
}

// HealthClient probes grpc.health.v1 endpoints, either directly or for every
// instance found in service discovery.
type HealthClient struct {
	discovery Discoverer
	logger    *zap.Logger
	dialOpts  []grpc.DialOption
}

func NewHealthClient(disc Discoverer, logger *zap.Logger, opts ...grpc.DialOption) *HealthClient {
	if len(opts) == 0 {
		opts = []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}
	}
	return &HealthClient{
		discovery: disc,
		logger:    logger,
		dialOpts:  opts,
	}
}

// Check asks target for the status of service ("" for both stores).
func (c *HealthClient) Check(ctx context.Context, target, service string) (healthpb.HealthCheckResponse_ServingStatus, error) {
	conn, err := grpc.NewClient(target, c.dialOpts...)
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN, fmt.Errorf("failed to connect to %s: %w", target, err)
	}
	defer conn.Close()

	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN, fmt.Errorf("health check %s: %w", target, err)
	}
	return resp.GetStatus(), nil
}

// CheckService probes every registered instance of name concurrently.
// Results keep the discovery order.
func (c *HealthClient) CheckService(ctx context.Context, name, service string) ([]InstanceStatus, error) {
	if c.discovery == nil {
		return nil, errors.New("service discovery not configured")
	}

	instances, err := c.discovery.Discover(ctx, name)
	if err != nil {
		return nil, err
	}
	if len(instances) == 0 {
		return nil, fmt.Errorf("no instances registered for %q", name)
	}

	results := make([]InstanceStatus, len(instances))
	var wg sync.WaitGroup
	for i, inst := range instances {
		wg.Add(1)
		go func(i int, addr string) {
			defer wg.Done()
			// Registered values are plain host:port.
			st, err := c.Check(ctx, "passthrough:///"+addr, service)
			results[i] = InstanceStatus{Addr: addr, Status: st, Err: err}
			c.logger.Debug("Probed instance",
				zap.String("address", addr),
				zap.String("status", st.String()),
				zap.Error(err))
		}(i, inst.Addr())
	}
	wg.Wait()

	return results, nil
}
