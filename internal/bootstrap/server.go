package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/Domenick1991/flightbooking/config"
)

const shutdownTimeout = 5 * time.Second

type Servers struct {
	grpcServer *grpc.Server
	health     *health.Server
	conn       *grpc.ClientConn
	httpServer *http.Server
}

// Run starts the gRPC health server and the HTTP server (API router plus the gateway
// /healthz) and blocks until ctx is cancelled or a server fails.
func Run(ctx context.Context, cfg *config.Config, api http.Handler, log *zap.Logger) error {
	s, err := newServers(cfg, api)
	if err != nil {
		return err
	}
	defer s.conn.Close()

	errCh := make(chan error, 2)

	lis, err := net.Listen("tcp", cfg.GRPC.Address)
	if err != nil {
		return fmt.Errorf("listen gRPC %s: %w", cfg.GRPC.Address, err)
	}
	go func() { errCh <- s.grpcServer.Serve(lis) }()

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	log.Info("servers started",
		zap.String("http", cfg.HTTP.Address),
		zap.String("grpc", cfg.GRPC.Address))

	select {
	case err := <-errCh:
		s.grpcServer.Stop()
		return err
	case <-ctx.Done():
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.health.Shutdown()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		s.grpcServer.GracefulStop()
		return nil
	}
}

func newServers(cfg *config.Config, api http.Handler) (*Servers, error) {
	grpcSrv := grpc.NewServer()
	healthSrv := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcSrv, healthSrv)
	reflection.Register(grpcSrv)
	healthSrv.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)

	conn, err := grpc.NewClient(dialTarget(cfg.GRPC.Address), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("dial gRPC health: %w", err)
	}
	gateway := runtime.NewServeMux(runtime.WithHealthzEndpoint(grpc_health_v1.NewHealthClient(conn)))

	handler := http.NewServeMux()
	handler.Handle("/healthz", gateway)
	handler.Handle("/", api)

	return &Servers{
		grpcServer: grpcSrv,
		health:     healthSrv,
		conn:       conn,
		httpServer: &http.Server{
			Addr:              cfg.HTTP.Address,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, nil
}

// dialTarget turns a listen address such as ":9090" into a dialable one.
func dialTarget(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil || host != "" {
		return addr
	}
	return net.JoinHostPort("localhost", port)
}
