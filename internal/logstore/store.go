// Package logstore is the Pebble-backed log engine. Writes flow through a
// single asynchronous writer into an append-only event log; queries and
// deletions scan that log in id order.
package logstore

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/multierr"

	"github.com/rzbill/logbook/internal/clock"
	"github.com/rzbill/logbook/internal/codec"
	"github.com/rzbill/logbook/internal/eventlog"
	"github.com/rzbill/logbook/internal/filter"
	"github.com/rzbill/logbook/internal/metrics"
	"github.com/rzbill/logbook/internal/model"
	"github.com/rzbill/logbook/internal/retention"
	pebblestore "github.com/rzbill/logbook/internal/storage/pebble"
	"github.com/rzbill/logbook/internal/writer"
	"github.com/rzbill/logbook/pkg/log"
)

const (
	// DefaultDirName is used when StoreOptions.LogFileName is empty.
	DefaultDirName = "logs.pebble"
	// EngineName labels metrics and diagnostics.
	EngineName = "pebble"

	logName    = "events"
	batchLimit = 1024
)

// Options configures a Store. Every field is optional.
type Options struct {
	Logger   log.Logger
	Counters *metrics.Counters
	Fsync    pebblestore.FsyncMode
	// Writer tunes the asynchronous writer (buffer size, drop-on-full).
	Writer []writer.Option
	// OnError receives asynchronous write failures.
	OnError func(error)
	// NowMs overrides the write clock.
	NowMs func() int64
}

// Store implements the logbook backend contract on Pebble.
type Store struct {
	opts   Options
	logger log.Logger

	cfgMu  sync.Mutex
	mu     sync.RWMutex
	cur    *engine
	closed bool
}

// engine is one open store directory.
type engine struct {
	path     string
	db       *pebblestore.DB
	log      *eventlog.Log
	w        *writer.Async
	clock    *clock.Monotonic
	comp     *codec.Compressor
	compress atomic.Bool
	settings atomic.Pointer[model.StoreOptions]
	sweeper  atomic.Pointer[retention.Sweeper]
}

// New creates an unconfigured Store.
func New(opts Options) *Store {
	if opts.Logger == nil {
		opts.Logger = log.NewNop()
	}
	if opts.Counters == nil {
		opts.Counters = metrics.Nop()
	}
	if opts.NowMs == nil {
		opts.NowMs = clock.NowMs
	}
	return &Store{opts: opts, logger: opts.Logger.With(log.Component("logstore"))}
}

// Configure opens (or re-targets) the store. A new location is opened before
// the old one is drained and closed, so a failed open keeps the previous
// configuration serving.
func (s *Store) Configure(ctx context.Context, o model.StoreOptions) error {
	s.cfgMu.Lock()
	defer s.cfgMu.Unlock()

	s.mu.RLock()
	cur, closed := s.cur, s.closed
	s.mu.RUnlock()
	if closed {
		return model.ErrClosed
	}

	path := o.Path(DefaultDirName)
	if cur != nil && cur.path == path {
		cur.apply(o)
		s.restartRetention(ctx, cur)
		return nil
	}

	next, err := s.open(ctx, path)
	if err != nil {
		return err
	}
	next.apply(o)

	s.mu.Lock()
	s.cur = next
	s.mu.Unlock()

	if cur != nil {
		if err := s.shutdown(cur); err != nil {
			s.logger.Warn("closing previous store", log.Str("path", cur.path), log.Err(err))
		}
	}
	s.restartRetention(ctx, next)
	s.logger.Info("store configured", log.Str("path", path), log.Int64("max_age_s", o.MaxAge), log.Bool("compression", o.UseCompression))
	return nil
}

func (s *Store) open(ctx context.Context, path string) (*engine, error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("logstore: create %s: %w", path, err)
	}
	var hook pebblestore.MetricsHook
	if s.opts.Counters.Storage != nil {
		hook = s.opts.Counters.Storage
	}
	db, err := pebblestore.Open(pebblestore.Options{DataDir: path, Fsync: s.opts.Fsync, Metrics: hook})
	if err != nil {
		return nil, fmt.Errorf("logstore: open %s: %w", path, err)
	}
	l, err := eventlog.Open(db, logName)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	comp, err := codec.Shared()
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	e := &engine{path: path, db: db, log: l, comp: comp, clock: clock.NewMonotonic(s.opts.NowMs)}
	e.settings.Store(&model.StoreOptions{})
	l.SetTrimHook(deleteCounter{counters: s.opts.Counters})

	// keep timestamps ordered with ids across restarts
	if err := l.Scan(ctx, eventlog.ScanOptions{Reverse: true}, func(it eventlog.Item) (bool, error) {
		if ts, ok := headerTimestamp(it.Header); ok {
			e.clock.Observe(ts)
		}
		return false, nil
	}); err != nil {
		_ = db.Close()
		return nil, err
	}

	wopts := append([]writer.Option{
		writer.WithOnError(s.reportWriteError),
		writer.WithAfterBatch(func(ctx context.Context) {
			if sw := e.sweeper.Load(); sw != nil {
				sw.Maybe(ctx)
			}
		}),
	}, s.opts.Writer...)
	e.w = writer.New(writer.SinkFunc(func(ctx context.Context, entries []writer.Entry) error {
		return s.appendBatch(ctx, e, entries)
	}), wopts...)
	return e, nil
}

func (e *engine) apply(o model.StoreOptions) {
	o.DefaultTag = o.EffectiveDefaultTag()
	e.settings.Store(&o)
	e.compress.Store(o.UseCompression)
}

func (e *engine) options() model.StoreOptions { return *e.settings.Load() }

func (s *Store) restartRetention(ctx context.Context, e *engine) {
	o := e.options()
	sw := retention.New(retention.Policy{MaxAge: o.MaxAgeDuration(), Interval: o.DeleteIntervalDuration()},
		func(ctx context.Context, cutoffMs int64) (int, error) { return s.sweep(ctx, e, cutoffMs) },
		s.opts.NowMs,
		func(n int, err error) {
			if err != nil {
				s.logger.Warn("retention sweep failed", log.Err(err))
			} else if n > 0 {
				s.logger.Debug("retention sweep", log.Int("deleted", n))
			}
		})
	if old := e.sweeper.Swap(sw); old != nil {
		old.Stop()
	}
	// the ticker outlives the Configure call
	sw.Start(context.WithoutCancel(ctx))
}

func (s *Store) sweep(ctx context.Context, e *engine, cutoffMs int64) (int, error) {
	n, err := e.log.TrimOlderThan(ctx, cutoffMs, batchLimit, headerTimestamp)
	if err != nil {
		return n, err
	}
	if budget := e.options().MaxSizeBytes; budget > 0 {
		m, err := e.log.TrimToMaxBytes(ctx, budget, batchLimit)
		return n + m, err
	}
	return n, nil
}

func (s *Store) appendBatch(ctx context.Context, e *engine, entries []writer.Entry) error {
	compress := e.compress.Load()
	recs := make([]eventlog.AppendRecord, len(entries))
	for i, en := range entries {
		h := header{ts: e.clock.Next(), level: en.Level, tag: en.Tag}
		payload := []byte(en.Message)
		if compress {
			if c := e.comp.Compress(payload); len(c) < len(payload) {
				payload = c
				h.flags |= flagCompressed
			}
		}
		recs[i] = eventlog.AppendRecord{Header: encodeHeader(h), Payload: payload}
	}
	if _, err := e.log.Append(ctx, recs); err != nil {
		return err
	}
	for _, en := range entries {
		s.opts.Counters.EventsWritten.Inc(EngineName, en.Level.String())
	}
	return nil
}

func (s *Store) reportWriteError(err error) {
	s.opts.Counters.WriteErrors.Inc(EngineName)
	s.logger.Error("async write failed", log.Err(err))
	if s.opts.OnError != nil {
		s.opts.OnError(err)
	}
}

// Write enqueues an event. Failures are reported through OnError.
func (s *Store) Write(level model.Level, message, tag string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		s.reportWriteError(model.ErrClosed)
		return
	}
	if s.cur == nil {
		s.reportWriteError(model.ErrNotConfigured)
		return
	}
	if err := s.cur.w.Write(writer.Entry{Level: level, Message: message, Tag: tag}); err != nil {
		s.reportWriteError(err)
	}
}

// acquire returns the current engine with the read lock held. The caller
// must call release.
func (s *Store) acquire() (*engine, error) {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return nil, model.ErrClosed
	}
	if s.cur == nil {
		s.mu.RUnlock()
		return nil, model.ErrNotConfigured
	}
	return s.cur, nil
}

func (s *Store) release() { s.mu.RUnlock() }

// Flush waits until every write issued before the call is stored.
func (s *Store) Flush(ctx context.Context) error {
	e, err := s.acquire()
	if err != nil {
		return err
	}
	defer s.release()
	return e.w.Flush(ctx)
}

// GetLogs returns events matching q, ordered by id.
func (s *Store) GetLogs(ctx context.Context, q model.Query) ([]model.LogEvent, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	expr, err := filter.Compile(q.Filter)
	if err != nil {
		return nil, err
	}
	e, err := s.acquire()
	if err != nil {
		return nil, err
	}
	defer s.release()
	if err := e.w.Flush(ctx); err != nil {
		return nil, err
	}
	s.opts.Counters.Queries.Inc(EngineName)

	defaultTag := e.options().DefaultTag
	desc := q.Descending()
	out := make([]model.LogEvent, 0, min(max(q.Limit, 16), 1024))
	scan := eventlog.ScanOptions{Reverse: desc}
	if q.AfterID > 0 {
		scan.From = q.AfterID + 1
	}
	err = e.log.Scan(ctx, scan, func(it eventlog.Item) (bool, error) {
		h, err := decodeHeader(it.Header)
		if err != nil {
			return true, nil
		}
		// timestamps are non-decreasing in id order
		if !desc && q.End > 0 && h.ts > q.End {
			return false, nil
		}
		if desc && q.Start > 0 && h.ts < q.Start {
			return false, nil
		}
		ev := model.LogEvent{ID: it.Seq, Timestamp: h.ts, Level: h.level, Tag: h.tag}
		if !q.Matches(ev, defaultTag) {
			return true, nil
		}
		msg, err := e.message(h, it.Payload)
		if err != nil {
			return false, fmt.Errorf("logstore: event %d: %w", it.Seq, err)
		}
		ev.Message = msg
		if expr.Enabled() && !expr.Eval(ev) {
			return true, nil
		}
		out = append(out, ev)
		return q.Limit == 0 || len(out) < q.Limit, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (e *engine) message(h header, payload []byte) (string, error) {
	if !h.compressed() {
		return string(payload), nil
	}
	raw, err := e.comp.Decompress(payload)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// DeleteLogs removes events matching q. An empty query removes everything.
func (s *Store) DeleteLogs(ctx context.Context, q model.DeleteQuery) error {
	if err := q.Validate(); err != nil {
		return err
	}
	e, err := s.acquire()
	if err != nil {
		return err
	}
	defer s.release()
	if err := e.w.Flush(ctx); err != nil {
		return err
	}

	switch {
	case q == (model.DeleteQuery{}):
		_, err = e.log.DeleteThrough(ctx, e.log.LastSeq())
	case q.OnlyMaxID():
		_, err = e.log.DeleteThrough(ctx, q.MaxID)
	default:
		_, err = e.log.DeleteWhere(ctx, eventlog.ScanOptions{To: q.MaxID}, batchLimit, func(it eventlog.Item) bool {
			ts, ok := headerTimestamp(it.Header)
			return ok && q.Matches(it.Seq, ts)
		})
	}
	return err
}

// DBFilePath returns the store directory.
func (s *Store) DBFilePath(ctx context.Context) (string, error) {
	e, err := s.acquire()
	if err != nil {
		return "", err
	}
	defer s.release()
	return e.path, nil
}

// CleanUp compresses stored messages, enforces the size budget, and compacts.
func (s *Store) CleanUp(ctx context.Context, o model.CleanUpOptions) error {
	e, err := s.acquire()
	if err != nil {
		return err
	}
	defer s.release()
	if err := e.w.Flush(ctx); err != nil {
		return err
	}

	if o.Compress {
		n, err := e.log.Rewrite(ctx, batchLimit, func(it eventlog.Item) ([]byte, []byte, bool) {
			h, err := decodeHeader(it.Header)
			if err != nil || h.compressed() {
				return nil, nil, false
			}
			c := e.comp.Compress(it.Payload)
			if len(c) >= len(it.Payload) {
				return nil, nil, false
			}
			h.flags |= flagCompressed
			return encodeHeader(h), c, true
		})
		if err != nil {
			return err
		}
		s.logger.Debug("compressed stored events", log.Int("rewritten", n))
	}
	if budget := e.options().MaxSizeBytes; budget > 0 {
		if _, err := e.log.TrimToMaxBytes(ctx, budget, batchLimit); err != nil {
			return err
		}
	}
	if o.Vacuum {
		return e.log.Compact()
	}
	return nil
}

// WaitForAppend blocks until a batch is appended, the timeout elapses, or
// ctx ends.
func (s *Store) WaitForAppend(ctx context.Context, timeout time.Duration) bool {
	e, err := s.acquire()
	if err != nil {
		return false
	}
	l := e.log
	s.release()
	return l.WaitForAppend(ctx, timeout)
}

// Close drains pending writes and closes the store. Later calls return ErrClosed.
func (s *Store) Close() error {
	s.cfgMu.Lock()
	defer s.cfgMu.Unlock()
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	cur := s.cur
	s.cur = nil
	s.mu.Unlock()
	if cur == nil {
		return nil
	}
	return s.shutdown(cur)
}

func (s *Store) shutdown(e *engine) error {
	if sw := e.sweeper.Swap(nil); sw != nil {
		sw.Stop()
	}
	// Close returns only once the drain goroutine has exited
	werr := e.w.Close()
	return multierr.Append(werr, e.db.Close())
}

type deleteCounter struct {
	counters *metrics.Counters
}

func (d deleteCounter) OnTrim(reason string, _, _ uint64, n int) {
	d.counters.EventsDeleted.Add(float64(n), EngineName, reason)
}
