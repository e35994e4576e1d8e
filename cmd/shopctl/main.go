package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/example/shopcore/pkg/config"
	"github.com/example/shopcore/pkg/discovery"
	"github.com/example/shopcore/pkg/grpc"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:   "shopctl",
		Short: "Operator tooling for the shop API",
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config/config.yaml", "Config file")

	rootCmd.AddCommand(healthCmd())
	rootCmd.AddCommand(instancesCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func healthCmd() *cobra.Command {
	var (
		target  string
		service string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Probe the gRPC health service of one target or of every registered instance",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			if target != "" {
				st, err := grpc.NewHealthClient(nil, zap.NewNop()).Check(ctx, target, service)
				if err != nil {
					return err
				}
				fmt.Printf("%-24s %s\n", target, st)
				return nil
			}

			cfg, sd, err := connect()
			if err != nil {
				return err
			}
			defer sd.Close()

			results, err := grpc.NewHealthClient(sd, zap.NewNop()).CheckService(ctx, grpc.RegistryName(cfg.Server.Name), service)
			if err != nil {
				return err
			}

			failed := 0
			for _, r := range results {
				if r.Err != nil {
					failed++
					fmt.Printf("%-24s ERROR (%s)\n", r.Addr, r.Err)
					continue
				}
				if r.Status != healthpb.HealthCheckResponse_SERVING {
					failed++
				}
				fmt.Printf("%-24s %s\n", r.Addr, r.Status)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d instances not serving", failed, len(results))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&target, "target", "t", "", "Probe this host:port instead of discovering instances")
	cmd.Flags().StringVarP(&service, "service", "s", "", "Store to check (mysql, mongo; empty for both)")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "Overall timeout")

	return cmd
}

func instancesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "instances [name]",
		Short: "List instances registered in etcd (defaults to the configured server name)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, sd, err := connect()
			if err != nil {
				return err
			}
			defer sd.Close()

			names := []string{cfg.Server.Name, grpc.RegistryName(cfg.Server.Name)}
			if len(args) == 1 {
				names = args
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Etcd.DialTimeout)
			defer cancel()

			for _, name := range names {
				instances, err := sd.Discover(ctx, name)
				if err != nil {
					return err
				}
				fmt.Printf("%s (%d)\n", name, len(instances))
				for _, inst := range instances {
					fmt.Printf("  %s\n", inst.Addr())
				}
			}
			return nil
		},
	}
}

func connect() (*config.Config, *discovery.ServiceDiscovery, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if len(cfg.Etcd.Endpoints) == 0 {
		return nil, nil, fmt.Errorf("no etcd endpoints configured (set ETCD_ENDPOINTS)")
	}

	sd, err := discovery.NewServiceDiscovery(&cfg.Etcd, zap.NewNop())
	if err != nil {
		return nil, nil, err
	}
	return cfg, sd, nil
}
