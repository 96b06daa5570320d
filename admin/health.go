package admin

import (
	"context"
	"net"

	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is reported by the gRPC health service alongside the "" server status
const ServiceName = "pathserver.PathQuery"

// HealthServer exposes the standard grpc.health.v1 service
type HealthServer struct {
	server *grpc.Server
	health *health.Server
}

func NewHealthServer() *HealthServer {
	h := &HealthServer{
		server: grpc.NewServer(),
		health: health.NewServer(),
	}
	healthpb.RegisterHealthServer(h.server, h.health)
	h.SetServing(false)
	return h
}

func (h *HealthServer) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	h.health.SetServingStatus("", status)
	h.health.SetServingStatus(ServiceName, status)
}

// Serve runs the gRPC server on addr until ctx is cancelled
func (h *HealthServer) Serve(ctx context.Context, addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return h.serveListener(ctx, listener)
}

func (h *HealthServer) serveListener(ctx context.Context, listener net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		log.Infof("grpc health listening on %v", listener.Addr())
		errCh <- h.server.Serve(listener)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		h.health.Shutdown()
		h.server.GracefulStop()
		return nil
	}
}
