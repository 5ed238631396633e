package grpc

import (
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"astba/training/internal/operations"
)

// NewServer builds the gRPC server with the progress queries and the
// standard health service registered.
func NewServer(serviceToken string, svc *operations.Service, log *zap.Logger) (*grpc.Server, error) {
	interceptor, err := NewServiceAuthUnaryInterceptor(serviceToken)
	if err != nil {
		return nil, err
	}
	server := grpc.NewServer(grpc.UnaryInterceptor(interceptor))
	RegisterProgressQueryService(server, NewProgressQueryServer(svc, log))

	healthServer := health.NewServer()
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(ProgressQueryServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(server, healthServer)
	return server, nil
}
