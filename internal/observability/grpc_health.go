package observability

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
)

// GRPCHealthServer serves grpc.health.v1 with a status derived from the readiness checks
type GRPCHealthServer struct {
	server   *grpc.Server
	health   *health.Server
	checks   []HealthCheck
	interval time.Duration
	logger   zerolog.Logger
}

// NewGRPCHealthServer creates a health server that re-evaluates checks every interval
func NewGRPCHealthServer(interval time.Duration, checks ...HealthCheck) *GRPCHealthServer {
	if interval <= 0 {
		interval = 10 * time.Second
	}

	server := grpc.NewServer(
		grpc.KeepaliveParams(keepalive.ServerParameters{
			Time:    30 * time.Second,
			Timeout: 5 * time.Second,
		}),
		grpc.KeepaliveEnforcementPolicy(keepalive.EnforcementPolicy{
			MinTime:             10 * time.Second,
			PermitWithoutStream: true,
		}),
	)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(server, hs)

	return &GRPCHealthServer{
		server:   server,
		health:   hs,
		checks:   checks,
		interval: interval,
		logger:   WithComponent("grpc_health"),
	}
}

// Refresh runs the checks once and publishes the overall serving status
func (g *GRPCHealthServer) Refresh(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	_, ok := RunChecks(ctx, g.checks)
	status := healthpb.HealthCheckResponse_SERVING
	if !ok {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	g.health.SetServingStatus("", status)
	g.health.SetServingStatus(serviceName, status)
	return status
}

// Serve listens on addr until ctx is cancelled
func (g *GRPCHealthServer) Serve(ctx context.Context, addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen for grpc health on %s: %w", addr, err)
	}

	g.Refresh(ctx)

	go func() {
		ticker := time.NewTicker(g.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				g.health.Shutdown()
				g.server.GracefulStop()
				return
			case <-ticker.C:
				if status := g.Refresh(ctx); status != healthpb.HealthCheckResponse_SERVING {
					g.logger.Warn().Str("status", status.String()).Msg("Readiness checks failing")
				}
			}
		}
	}()

	g.logger.Info().Str("addr", addr).Msg("gRPC health server listening")
	if err := g.server.Serve(lis); err != nil && err != grpc.ErrServerStopped {
		return fmt.Errorf("grpc health server failed: %w", err)
	}
	return nil
}
