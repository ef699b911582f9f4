package grpc_control

import (
	"fmt"
	"net"

	"usage-watch/src/logger"
	"usage-watch/src/models"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Server hosts the control service and the standard health service.
type Server struct {
	Config *models.MConfig
	Logger *logger.Logger
	grpc   *grpc.Server
	health *health.Server
}

func NewServer(cfg *models.MConfig, svc AnomalyControlServer, log *logger.Logger) *Server {
	if log == nil {
		log = logger.NewLogger(nil, "ControlServer")
	}

	s := &Server{
		Config: cfg,
		Logger: log,
		grpc:   grpc.NewServer(),
		health: health.NewServer(),
	}
	RegisterAnomalyControlServer(s.grpc, svc)
	healthpb.RegisterHealthServer(s.grpc, s.health)
	s.health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	return s
}

// -----------------------------------------------------------------------------

// Start listens on the configured gRPC address and blocks serving.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.Config.GrpcHost, s.Config.GrpcPort)
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen for gRPC on %s: %w", addr, err)
	}
	s.Logger.Info("Starting gRPC Control Server on %s", addr)
	return s.Serve(lis)
}

func (s *Server) Serve(lis net.Listener) error {
	return s.grpc.Serve(lis)
}

// -----------------------------------------------------------------------------

func (s *Server) Stop() {
	s.health.Shutdown()
	s.grpc.GracefulStop()
}
