package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/example/shopcore/gateway"
	"github.com/example/shopcore/pkg/config"
	"github.com/example/shopcore/pkg/discovery"
	"github.com/example/shopcore/pkg/grpc"
	"github.com/example/shopcore/pkg/logger"
	"github.com/example/shopcore/pkg/metrics"
	"github.com/example/shopcore/pkg/repository"
	"github.com/example/shopcore/pkg/service"
	"go.uber.org/zap"
)

func main() {
	configPath := "config/config.yaml"
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		configPath = p
	}

	// Load config
	cfg, err := config.Load(configPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Setup logger
	log, err := logger.New(cfg.Log, cfg.Server.Debug)
	if err != nil {
		panic(fmt.Sprintf("Failed to create logger: %v", err))
	}
	defer log.Sync()

	log.Info("Starting shop API",
		zap.String("name", cfg.Server.Name),
		zap.Int("port", cfg.Server.Port))

	ctx := context.Background()

	orders, err := repository.NewOrderRepository(&cfg.MySQL)
	if err != nil {
		log.Fatal("Failed to connect to MySQL", zap.Error(err))
	}
	defer orders.Close()

	if cfg.MySQL.AutoMigrate {
		if err := orders.Migrate(ctx); err != nil {
			log.Fatal("Failed to migrate MySQL schema", zap.Error(err))
		}
	}

	reviews, err := repository.NewReviewRepository(&cfg.MongoDB)
	if err != nil {
		log.Fatal("Failed to connect to MongoDB", zap.Error(err))
	}
	defer reviews.Close(context.Background())

	// The replica set may still be electing a primary; reviews fail with 503 until it does.
	if cfg.MongoDB.EnsureIndexes {
		if err := reviews.EnsureIndexes(ctx); err != nil {
			log.Warn("Failed to ensure review indexes", zap.Error(err))
		}
	}

	shop := service.NewShopService(orders, reviews, log.Named("shop"))

	gw := gateway.NewGateway(cfg, log.Named("gateway"), shop, metrics.NewServerMetrics("api"))
	gw.SetupRoutes()

	serverErr := make(chan error, 2)
	go func() {
		if err := gw.Start(); err != nil {
			serverErr <- err
		}
	}()

	var health *grpc.HealthServer
	if cfg.Server.GRPCPort > 0 {
		health = grpc.NewHealthServer(cfg, shop, log.Named("grpc-health"))
		go func() {
			if err := health.Start(); err != nil {
				serverErr <- err
			}
		}()
	}

	// Service registration is optional
	var sd *discovery.ServiceDiscovery
	instances := serviceInstances(&cfg.Server, health != nil)
	regCtx, cancelReg := context.WithCancel(ctx)
	defer cancelReg()
	if len(cfg.Etcd.Endpoints) > 0 {
		sd, err = discovery.NewServiceDiscovery(&cfg.Etcd, log.Named("discovery"))
		if err != nil {
			log.Warn("Failed to connect to etcd, continuing without service discovery", zap.Error(err))
		} else {
			for _, inst := range instances {
				if err := sd.Register(regCtx, inst); err != nil {
					log.Warn("Failed to register service", zap.String("name", inst.Name), zap.Error(err))
					continue
				}
				log.Info("Service registered in etcd",
					zap.String("name", inst.Name),
					zap.String("address", inst.Addr()))
			}
		}
	}

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		log.Info("Received shutdown signal")
	case err := <-serverErr:
		log.Error("Server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := gw.Shutdown(shutdownCtx); err != nil {
		log.Error("Failed to shut down HTTP server", zap.Error(err))
	}
	if health != nil {
		health.Stop()
	}

	if sd != nil {
		for _, inst := range instances {
			if err := sd.Deregister(shutdownCtx, inst); err != nil {
				log.Error("Failed to deregister service", zap.String("name", inst.Name), zap.Error(err))
			}
		}
		sd.Close()
	}

	log.Info("Shop API stopped")
}

// serviceInstances lists what this process registers in etcd, addressed by
// the advertise host rather than the bind address.
func serviceInstances(cfg *config.ServerConfig, withGRPC bool) []*discovery.ServiceInstance {
	instances := []*discovery.ServiceInstance{{
		Name: cfg.Name,
		Host: cfg.AdvertiseHost,
		Port: cfg.Port,
	}}
	if withGRPC {
		instances = append(instances, &discovery.ServiceInstance{
			Name: grpc.RegistryName(cfg.Name),
			Host: cfg.AdvertiseHost,
			Port: cfg.GRPCPort,
		})
	}
	return instances
}
