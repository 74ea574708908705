package grpc

import (
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"go-commerce/pkg/logger"
)

// Server bundles a gRPC server with its health service
type Server struct {
	*grpc.Server
	Health *health.Server
}

// NewServer creates a server with the standard interceptors and a health
// service registered. creds may be nil for plaintext.
func NewServer(log *logger.Logger, timeout time.Duration, creds credentials.TransportCredentials) *Server {
	opts := []grpc.ServerOption{
		grpc.ChainUnaryInterceptor(UnaryServerInterceptor(log, timeout)),
		grpc.ChainStreamInterceptor(StreamServerInterceptor(log)),
	}
	if creds != nil {
		opts = append(opts, grpc.Creds(creds))
	}

	server := grpc.NewServer(opts...)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(server, hs)
	reflection.Register(server)

	return &Server{Server: server, Health: hs}
}

// SetServing marks service (empty for the whole server) as serving or not
func (s *Server) SetServing(service string, serving bool) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		st = healthpb.HealthCheckResponse_SERVING
	}
	s.Health.SetServingStatus(service, st)
}

// Shutdown flips health to NOT_SERVING and drains in-flight calls
func (s *Server) Shutdown() {
	s.Health.Shutdown()
	s.GracefulStop()
}
