package grpchealth

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/felixgeelhaar/roomkeeper/pkg/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"
)

func startServer(t *testing.T, registry *observability.HealthRegistry) (*Server, healthpb.HealthClient) {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := NewServer(registry, time.Hour, slog.New(slog.DiscardHandler))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, lis) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = conn.Close()
		srv.Stop()
		cancel()
		<-done
	})
	return srv, healthpb.NewHealthClient(conn)
}

func check(t *testing.T, client healthpb.HealthClient, service string) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()
	resp, err := client.Check(context.Background(), &healthpb.HealthCheckRequest{Service: service})
	require.NoError(t, err)
	return resp.GetStatus()
}

func TestServer_PublishesRegistry(t *testing.T) {
	var dbDown atomic.Bool
	registry := observability.NewHealthRegistry()
	registry.Register("database", observability.DatabaseHealthChecker(func(context.Context) error {
		if dbDown.Load() {
			return errors.New("connection refused")
		}
		return nil
	}))
	registry.Register("redis", observability.RedisHealthChecker(func(context.Context) error {
		return errors.New("timeout")
	}))

	srv, client := startServer(t, registry)

	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, check(t, client, ""))
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, check(t, client, "database"))
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, check(t, client, "redis"), "degraded still serves")

	dbDown.Store(true)
	srv.Refresh(context.Background())

	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, check(t, client, ""))
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, check(t, client, "database"))
}

func TestServer_UnknownService(t *testing.T) {
	_, client := startServer(t, observability.NewHealthRegistry())

	_, err := client.Check(context.Background(), &healthpb.HealthCheckRequest{Service: "printing"})
	assert.Error(t, err)
}

func TestServingStatus(t *testing.T) {
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, servingStatus(observability.HealthStatusHealthy))
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, servingStatus(observability.HealthStatusDegraded))
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, servingStatus(observability.HealthStatusUnhealthy))
}
