package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/ashureev/caficafe-chat/internal/api"
	"github.com/spf13/cobra"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

var errUnhealthy = errors.New("chat service is not healthy")

func newHealthCmd(opts *options) *cobra.Command {
	var (
		grpcAddr    string
		grpcService string
		grpcTimeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check whether the chat service is reachable",
		Long:  "Checks GET /health over HTTP and, with --grpc-addr, the grpc.health.v1 endpoint.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			r := newRenderer(cmd.OutOrStdout())
			client, err := opts.newClient(nil)
			if err != nil {
				return err
			}
			defer client.Close()

			healthy := client.CheckHealth(ctx)
			r.OnConnectionChange(client.State())

			if grpcAddr != "" {
				hc, err := api.NewHealthClient(grpcAddr, grpcTimeout, opts.logger)
				if err != nil {
					return err
				}
				defer hc.Close()

				status, err := hc.Check(ctx, grpcService)
				if err != nil {
					return err
				}
				r.info("gRPC %s: %s", grpcAddr, status)
				if status != healthpb.HealthCheckResponse_SERVING {
					healthy = false
				}
			}

			if !healthy {
				return fmt.Errorf("%w at %s", errUnhealthy, client.BaseURL())
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&grpcAddr, "grpc-addr", "", "also check the gRPC health endpoint at host:port")
	cmd.Flags().StringVar(&grpcService, "grpc-service", api.ChatServiceName, "gRPC health service name")
	cmd.Flags().DurationVar(&grpcTimeout, "grpc-timeout", 5*time.Second, "gRPC connect timeout")
	return cmd
}
