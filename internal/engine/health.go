package engine

import (
	"context"
	"log/slog"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
)

// healthServer exposes the standard gRPC health-check service so deployment
// tooling can distinguish "connectors up" from "trading live". The status
// stays NOT_SERVING until every strategy has activated.
type healthServer struct {
	addr   string
	log    *slog.Logger
	server *grpc.Server
	check  *health.Server
}

func newHealthServer(addr string, log *slog.Logger) *healthServer {
	h := &healthServer{
		addr:   addr,
		log:    log,
		server: grpc.NewServer(),
		check:  health.NewServer(),
	}
	h.check.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	grpc_health_v1.RegisterHealthServer(h.server, h.check)
	return h
}

// serve listens until the engine shuts down. It runs under scheduler
// supervision so a failed listen surfaces as a fault.
func (h *healthServer) serve(ctx context.Context) error {
	lis, err := net.Listen("tcp", h.addr)
	if err != nil {
		return err
	}
	h.log.Info("health endpoint listening", "addr", h.addr)

	go func() {
		<-ctx.Done()
		h.server.GracefulStop()
	}()
	if err := h.server.Serve(lis); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

func (h *healthServer) setServing() {
	h.check.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
}

func (h *healthServer) setNotServing() {
	h.check.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)
}

func (h *healthServer) stop() {
	h.server.Stop()
}
