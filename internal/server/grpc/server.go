package grpcserver

import (
	"context"
	"net"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/rzbill/logbook/internal/runtime"
	"github.com/rzbill/logbook/pkg/log"
)

// ServiceName is the health service entry that tracks the log store.
const ServiceName = "logbook.v1.LogStore"

// DefaultCheckInterval is how often store health is re-evaluated.
const DefaultCheckInterval = 5 * time.Second

// Server owns the gRPC server instance and runtime.
type Server struct {
	rt       *runtime.Runtime
	grpc     *grpc.Server
	health   *health.Server
	logger   log.Logger
	interval time.Duration

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// New constructs a gRPC server and registers services.
func New(rt *runtime.Runtime, logger log.Logger, opts ...grpc.ServerOption) *Server {
	if logger == nil {
		logger = log.NewNop()
	}
	s := &Server{
		rt:       rt,
		grpc:     grpc.NewServer(opts...),
		health:   health.NewServer(),
		logger:   logger.With(log.Component("grpc")),
		interval: DefaultCheckInterval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	healthpb.RegisterHealthServer(s.grpc, s.health)
	reflection.Register(s.grpc)
	s.refresh(context.Background())
	go s.watch()
	return s
}

// refresh sets both the overall and the store status from CheckHealth.
func (s *Server) refresh(ctx context.Context) {
	status := healthpb.HealthCheckResponse_SERVING
	if err := s.rt.CheckHealth(ctx); err != nil {
		status = healthpb.HealthCheckResponse_NOT_SERVING
		s.logger.Warn("store unhealthy", log.Err(err))
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
}

func (s *Server) watch() {
	defer close(s.done)
	t := time.NewTicker(s.interval)
	defer t.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-t.C:
			ctx, cancel := context.WithTimeout(context.Background(), s.interval)
			s.refresh(ctx)
			cancel()
		}
	}
}

// ListenAndServe binds to addr and serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, l)
}

// Serve serves on l until ctx is done.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	s.logger.Info("listening", log.Str("addr", l.Addr().String()))
	errCh := make(chan error, 1)
	go func() { errCh <- s.grpc.Serve(l) }()
	select {
	case <-ctx.Done():
		s.Close()
		return nil
	case err := <-errCh:
		return err
	}
}

// Close marks every service NOT_SERVING and stops the server gracefully,
// which also closes its listeners.
func (s *Server) Close() {
	s.stopOnce.Do(func() {
		close(s.stop)
		<-s.done
		s.health.Shutdown()
		s.grpc.GracefulStop()
	})
}
