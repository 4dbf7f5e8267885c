// Package grpchealth serves the standard gRPC health protocol from the
// process health registry, for load balancers and orchestrators that probe
// over gRPC rather than HTTP.
package grpchealth

import (
	"context"
	"log/slog"
	"net"
	"time"

	"github.com/felixgeelhaar/roomkeeper/pkg/observability"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Server mirrors a HealthRegistry into a grpc health service. The overall
// status is published under the empty service name and each check under its
// own name.
type Server struct {
	grpc     *grpc.Server
	health   *health.Server
	registry *observability.HealthRegistry
	interval time.Duration
	logger   *slog.Logger
}

// NewServer creates a Server that refreshes every interval.
func NewServer(registry *observability.HealthRegistry, interval time.Duration, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = 10 * time.Second
	}

	hs := health.NewServer()
	gs := grpc.NewServer()
	healthpb.RegisterHealthServer(gs, hs)

	return &Server{
		grpc:     gs,
		health:   hs,
		registry: registry,
		interval: interval,
		logger:   logger,
	}
}

// Refresh runs every check once and publishes the results.
func (s *Server) Refresh(ctx context.Context) {
	overall := s.registry.GetOverallHealth(ctx)
	for name, result := range overall.Checks {
		s.health.SetServingStatus(name, servingStatus(result.Status))
	}
	s.health.SetServingStatus("", servingStatus(overall.Status))
}

// Serve refreshes health in the background and serves on lis until Stop.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	s.Refresh(ctx)

	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				checkCtx, cancel := context.WithTimeout(ctx, s.interval)
				s.Refresh(checkCtx)
				cancel()
			}
		}
	}()

	s.logger.Info("starting gRPC health server", "addr", lis.Addr().String())
	return s.grpc.Serve(lis)
}

// Stop marks every service NOT_SERVING and drains open streams.
func (s *Server) Stop() {
	s.health.Shutdown()
	s.grpc.GracefulStop()
}

// degraded still serves; only unhealthy takes the process out of rotation.
func servingStatus(status observability.HealthStatus) healthpb.HealthCheckResponse_ServingStatus {
	if status == observability.HealthStatusUnhealthy {
		return healthpb.HealthCheckResponse_NOT_SERVING
	}
	return healthpb.HealthCheckResponse_SERVING
}
