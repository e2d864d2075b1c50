package serverrun

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"go.uber.org/multierr"

	cfgpkg "github.com/rzbill/logbook/internal/config"
	"github.com/rzbill/logbook/internal/metrics"
	"github.com/rzbill/logbook/internal/runtime"
	grpcserver "github.com/rzbill/logbook/internal/server/grpc"
	httpserver "github.com/rzbill/logbook/internal/server/http"
	logpkg "github.com/rzbill/logbook/pkg/log"
)

type Options struct {
	Config   cfgpkg.Config
	// Logger overrides the process logger built from Config.Log.
	Logger   logpkg.Logger
	// Counters defaults to metrics.New, which registers on the default
	// Prometheus registry and so may only be used once per process.
	Counters *metrics.Counters
}

// Run starts gRPC and HTTP servers and blocks until ctx is cancelled or a
// termination signal arrives.
func Run(ctx context.Context, opts Options) error {
	sctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := opts.Config
	if cfg.DataDir == "" {
		cfg.DataDir = cfgpkg.DefaultDataDir()
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return err
	}

	procLogger := opts.Logger
	if procLogger == nil {
		var err error
		procLogger, err = logpkg.ApplyConfig(&cfg.Log)
		if err != nil {
			procLogger = logpkg.NewLogger(logpkg.WithLevel(logpkg.InfoLevel))
			procLogger.Warn("invalid log config, using defaults", logpkg.Err(err))
		}
		// pebble logs through the standard library logger
		restore := logpkg.RedirectStdLog(procLogger)
		defer restore()
	}
	defer func() { _ = procLogger.Sync() }()

	counters := opts.Counters
	if counters == nil {
		counters = metrics.New()
	}

	procLogger.Info("starting logbook server",
		logpkg.Str("data_dir", cfg.DataDir),
		logpkg.Str("engine", cfg.Engine),
		logpkg.Str("grpc", cfg.GRPC.Addr),
		logpkg.Str("http", cfg.HTTP.Addr),
		logpkg.Str("level", cfg.Log.Level),
		logpkg.Str("format", cfg.Log.Format),
		logpkg.Bool("ship", cfg.Ship.Enabled()),
	)

	rt, err := runtime.Open(sctx, runtime.Options{Config: cfg, Logger: procLogger, Counters: counters})
	if err != nil {
		return err
	}

	gsrv := grpcserver.New(rt, procLogger)
	hsrv := httpserver.New(rt, procLogger)

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		runErr error
	)
	fail := func(err error) {
		mu.Lock()
		runErr = multierr.Append(runErr, err)
		mu.Unlock()
		stop()
	}

	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := gsrv.ListenAndServe(sctx, cfg.GRPC.Addr); err != nil && sctx.Err() == nil {
			procLogger.Error("grpc server failed", logpkg.Err(err))
			fail(err)
		}
	}()
	go func() {
		defer wg.Done()
		if err := hsrv.ListenAndServe(sctx, cfg.HTTP.Addr); err != nil && sctx.Err() == nil {
			procLogger.Error("http server failed", logpkg.Err(err))
			fail(err)
		}
	}()

	<-sctx.Done()
	// both servers shut down gracefully on sctx; the store closes after them
	wg.Wait()
	gsrv.Close()
	hsrv.Close()

	if err := rt.Close(); err != nil {
		runErr = multierr.Append(runErr, err)
	}
	procLogger.Info("logbook server stopped")
	return runErr
}
