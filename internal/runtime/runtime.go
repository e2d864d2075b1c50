package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"go.uber.org/multierr"

	kafkabroker "github.com/rzbill/logbook/internal/broker/kafka"
	cfgpkg "github.com/rzbill/logbook/internal/config"
	"github.com/rzbill/logbook/internal/logstore"
	"github.com/rzbill/logbook/internal/metrics"
	"github.com/rzbill/logbook/internal/shipper"
	"github.com/rzbill/logbook/internal/sqlitestore"
	pebblestore "github.com/rzbill/logbook/internal/storage/pebble"
	"github.com/rzbill/logbook/internal/writer"
	"github.com/rzbill/logbook/pkg/log"
	"github.com/rzbill/logbook/pkg/logbook"
)

// Options for building the Runtime.
type Options struct {
	Config   cfgpkg.Config
	Logger   log.Logger
	Counters *metrics.Counters
	// Publisher replaces the Kafka publisher when shipping is enabled.
	Publisher shipper.Publisher
}

// Engine is what both storage engines implement.
type Engine interface {
	logbook.Backend
	logbook.Cleaner
	logbook.Flusher
	io.Closer
}

type appendWaiter interface {
	WaitForAppend(ctx context.Context, timeout time.Duration) bool
}

// pollInterval bounds tail waits on engines without append notification.
const pollInterval = 250 * time.Millisecond

// Runtime wires the storage engine, the logbook facade and the optional
// shipper for a single daemon instance.
type Runtime struct {
	config   cfgpkg.Config
	base     log.Logger
	logger   log.Logger
	counters *metrics.Counters
	engine   Engine
	book     *logbook.Logger

	pub        shipper.Publisher
	shipCancel context.CancelFunc
	shipDone   chan struct{}

	closeOnce sync.Once
	closeErr  error
}

// Open builds and configures the engine named by the config.
func Open(ctx context.Context, opts Options) (*Runtime, error) {
	cfg := opts.Config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if opts.Logger == nil {
		opts.Logger = log.NewNop()
	}
	if opts.Counters == nil {
		opts.Counters = metrics.Nop()
	}
	rt := &Runtime{
		config:   cfg,
		base:     opts.Logger,
		logger:   opts.Logger.With(log.Component("runtime")),
		counters: opts.Counters,
	}

	engine, err := newEngine(cfg, opts.Logger, opts.Counters)
	if err != nil {
		return nil, err
	}
	rt.engine = engine
	rt.book = logbook.New(engine,
		logbook.WithDiagnostics(opts.Logger.With(log.Component("logbook"))),
		logbook.WithConsole(logbook.NewConsole(logbook.DiscardSink)),
	)

	level, err := logbook.ParseLevel(cfg.Store.LogLevel)
	if err != nil {
		_ = engine.Close()
		return nil, err
	}
	err = rt.book.Configure(ctx,
		logbook.WithCaptureConsole(false),
		logbook.WithLogFileDir(cfg.DataDir),
		logbook.WithLogFileName(cfg.FileName),
		logbook.WithLogLevel(level),
		logbook.WithMaxAge(cfg.Store.MaxAge),
		logbook.WithDeleteInterval(cfg.Store.DeleteInterval),
		logbook.WithCompression(cfg.Store.UseCompression),
		logbook.WithMaxSizeBytes(cfg.Store.MaxSizeBytes),
		logbook.WithDefaultTag(cfg.Store.DefaultTag),
	)
	if err != nil {
		_ = engine.Close()
		return nil, err
	}

	if cfg.Ship.Enabled() || opts.Publisher != nil {
		rt.startShipper(opts.Publisher)
	}

	path, _ := engine.DBFilePath(ctx)
	rt.logger.Info("runtime ready", log.Str("engine", cfg.Engine), log.Str("path", path))
	return rt, nil
}

func newEngine(cfg cfgpkg.Config, logger log.Logger, counters *metrics.Counters) (Engine, error) {
	var wopts []writer.Option
	if cfg.WriteBuffer > 0 {
		wopts = append(wopts, writer.WithBufferSize(cfg.WriteBuffer))
	}
	onError := func(err error) {
		logger.Error("write failed", log.Str("engine", cfg.Engine), log.Err(err))
	}
	switch cfg.Engine {
	case logstore.EngineName:
		return logstore.New(logstore.Options{
			Logger:   logger,
			Counters: counters,
			Fsync:    pebblestore.ParseFsyncMode(cfg.Fsync),
			Writer:   wopts,
			OnError:  onError,
		}), nil
	case sqlitestore.EngineName:
		return sqlitestore.New(sqlitestore.Options{
			Logger:   logger,
			Counters: counters,
			Writer:   wopts,
			OnError:  onError,
		}), nil
	default:
		return nil, fmt.Errorf("runtime: unknown engine %q", cfg.Engine)
	}
}

func (r *Runtime) startShipper(pub shipper.Publisher) {
	sc := r.config.Ship
	if pub == nil {
		pub = kafkabroker.NewPublisher(kafkabroker.PublisherConfig{
			Brokers:    sc.Brokers,
			Topic:      sc.Topic,
			DefaultTag: r.config.Store.DefaultTag,
			Logger:     r.base,
		})
	}
	r.pub = pub
	interval := time.Duration(sc.Interval) * time.Second
	if interval <= 0 {
		interval = 30 * time.Second
	}
	sh := shipper.New(r.book, pub, shipper.Options{
		BatchSize: sc.BatchSize,
		Tags:      sc.Tags,
		Logger:    r.base,
	})
	ctx, cancel := context.WithCancel(context.Background())
	r.shipCancel = cancel
	r.shipDone = make(chan struct{})
	go func() {
		defer close(r.shipDone)
		sh.Run(ctx, interval)
	}()
	r.logger.Info("shipping enabled", log.Str("topic", sc.Topic), log.Dur("interval", interval))
}

// Logger returns the logbook facade.
func (r *Runtime) Logger() *logbook.Logger { return r.book }

// Engine exposes the storage engine.
func (r *Runtime) Engine() Engine { return r.engine }

// Config returns the runtime configuration.
func (r *Runtime) Config() cfgpkg.Config { return r.config }

// Counters returns the metrics the engine reports to.
func (r *Runtime) Counters() *metrics.Counters { return r.counters }

// Diagnostics returns the daemon's own logger.
func (r *Runtime) Diagnostics() log.Logger { return r.logger }

// WaitForAppend blocks until new events may be available, the timeout
// passes or ctx is done. Engines without append notification are polled.
func (r *Runtime) WaitForAppend(ctx context.Context, timeout time.Duration) bool {
	if w, ok := r.engine.(appendWaiter); ok {
		return w.WaitForAppend(ctx, timeout)
	}
	if timeout > pollInterval || timeout <= 0 {
		timeout = pollInterval
	}
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// CheckHealth reports whether the store is open and its files exist.
func (r *Runtime) CheckHealth(ctx context.Context) error {
	if r.engine == nil {
		return errors.New("engine not open")
	}
	path, err := r.engine.DBFilePath(ctx)
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("store missing: %w", err)
	}
	return nil
}

// Close stops shipping and closes the store.
func (r *Runtime) Close() error {
	r.closeOnce.Do(func() {
		var errs error
		if r.shipCancel != nil {
			r.shipCancel()
			<-r.shipDone
		}
		if c, ok := r.pub.(io.Closer); ok {
			errs = multierr.Append(errs, c.Close())
		}
		if r.book != nil {
			errs = multierr.Append(errs, r.book.Close())
		}
		r.closeErr = errs
	})
	return r.closeErr
}
