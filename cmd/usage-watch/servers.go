package main

import (
	pb "usage-watch/src/grpc_control"
	"usage-watch/src/logger"
	"usage-watch/src/server"
)

// -----------------------------------------------------------------------------

// startServers orchestrates the startup of all server components
func startServers(srv *server.APIServer, grpcServer *pb.Server, appLogger *logger.Logger) {

	// 1. HTTP API and dashboard websocket
	go func() {
		if err := srv.Start(); err != nil {
			appLogger.Error("Server failed: %v", err)
		}
	}()

	// 2. gRPC Control Server
	go func() {
		if err := grpcServer.Start(); err != nil {
			appLogger.Critical("failed to serve gRPC: %v", err)
		}
	}()
}

// -----------------------------------------------------------------------------

func stopServers(srv *server.APIServer, grpcServer *pb.Server, appLogger *logger.Logger) {
	if err := srv.Stop(); err != nil {
		appLogger.Warning("HTTP shutdown: %v", err)
	}
	grpcServer.Stop()
}
