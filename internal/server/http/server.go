package httpserver

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/rzbill/logbook/internal/runtime"
	"github.com/rzbill/logbook/internal/server/http/controllers"
	"github.com/rzbill/logbook/pkg/log"
)

type Server struct {
	rt     *runtime.Runtime
	srv    *http.Server
	logger log.Logger
}

func New(rt *runtime.Runtime, logger log.Logger) *Server {
	if logger == nil {
		logger = log.NewNop()
	}
	logger = logger.With(log.Component("http"))
	mux := http.NewServeMux()
	controllers.NewControllerRegistry(rt, logger).RegisterAllRoutes(mux)
	mux.Handle("/metrics", rt.Counters().Handler())

	handler := requestID(accessLog(logger, cors(rt.Config().HTTP.CORSOrigins, mux)))
	return &Server{
		rt:     rt,
		logger: logger,
		srv: &http.Server{
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Handler returns the root handler, middleware included.
func (s *Server) Handler() http.Handler { return s.srv.Handler }

// ListenAndServe binds to addr and serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.logger.Info("listening", log.Str("addr", l.Addr().String()))
	errCh := make(chan error, 1)
	go func() { errCh <- s.srv.Serve(l) }()
	select {
	case <-ctx.Done():
		cctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.srv.Shutdown(cctx)
		return nil
	case err := <-errCh:
		return err
	}
}

// Close stops accepting connections and closes active ones.
func (s *Server) Close() {
	_ = s.srv.Close()
}
