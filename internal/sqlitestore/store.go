// Package sqlitestore is the SQLite log engine. It keeps the classic single
// table layout (`logs`, AUTOINCREMENT ids) and is useful when other tools
// need to open the log file directly.
package sqlitestore

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"sync/atomic"

	sq "github.com/Masterminds/squirrel"
	"go.uber.org/multierr"

	"github.com/rzbill/logbook/internal/clock"
	"github.com/rzbill/logbook/internal/codec"
	"github.com/rzbill/logbook/internal/filter"
	"github.com/rzbill/logbook/internal/metrics"
	"github.com/rzbill/logbook/internal/model"
	"github.com/rzbill/logbook/internal/retention"
	"github.com/rzbill/logbook/internal/writer"
	"github.com/rzbill/logbook/pkg/log"
)

const (
	// DefaultFileName is used when StoreOptions.LogFileName is empty.
	DefaultFileName = "log.sqlite"
	// EngineName labels metrics and diagnostics.
	EngineName = "sqlite"
)

var columns = []string{"id", "timestamp", "level", "message", "tag", "compressed"}

// Options configures a Store. Every field is optional.
type Options struct {
	Logger   log.Logger
	Counters *metrics.Counters
	Writer   []writer.Option
	OnError  func(error)
	NowMs    func() int64
}

// Store implements the logbook backend contract on SQLite.
type Store struct {
	opts   Options
	logger log.Logger

	cfgMu  sync.Mutex
	mu     sync.RWMutex
	cur    *engine
	closed bool
}

type engine struct {
	path     string
	db       *sql.DB
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
	return &Store{opts: opts, logger: opts.Logger.With(log.Component("sqlitestore"))}
}

// Configure opens the database file. Moving to a new file opens it before the
// old one is drained and closed.
func (s *Store) Configure(ctx context.Context, o model.StoreOptions) error {
	s.cfgMu.Lock()
	defer s.cfgMu.Unlock()

	s.mu.RLock()
	cur, closed := s.cur, s.closed
	s.mu.RUnlock()
	if closed {
		return model.ErrClosed
	}

	path := o.Path(DefaultFileName)
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
			s.logger.Warn("closing previous database", log.Str("path", cur.path), log.Err(err))
		}
	}
	s.restartRetention(ctx, next)
	s.logger.Info("store configured", log.Str("path", path), log.Int64("max_age_s", o.MaxAge), log.Bool("compression", o.UseCompression))
	return nil
}

func (s *Store) open(ctx context.Context, path string) (*engine, error) {
	db, err := openDB(ctx, path)
	if err != nil {
		return nil, err
	}
	comp, err := codec.Shared()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	e := &engine{path: path, db: db, comp: comp, clock: clock.NewMonotonic(s.opts.NowMs)}
	e.settings.Store(&model.StoreOptions{})

	var newest sql.NullInt64
	if err := db.QueryRowContext(ctx, "SELECT MAX(timestamp) FROM logs").Scan(&newest); err != nil {
		_ = db.Close()
		return nil, err
	}
	if newest.Valid {
		e.clock.Observe(newest.Int64)
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
		return s.insertBatch(ctx, e, entries)
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
		func(ctx context.Context, cutoffMs int64) (int, error) {
			return s.deleteWhere(ctx, e, "retention", sq.LtOrEq{"timestamp": cutoffMs})
		},
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
	sw.Start(context.WithoutCancel(ctx))
}

func (s *Store) insertBatch(ctx context.Context, e *engine, entries []writer.Entry) error {
	compress := e.compress.Load()
	ins := sq.Insert("logs").Columns("timestamp", "level", "message", "tag", "compressed")
	for _, en := range entries {
		msg := []byte(en.Message)
		packed := false
		if compress {
			if c := e.comp.Compress(msg); len(c) < len(msg) {
				msg, packed = c, true
			}
		}
		ins = ins.Values(e.clock.Next(), int(en.Level), msg, sql.NullString{String: en.Tag, Valid: en.Tag != ""}, packed)
	}
	query, args, err := ins.ToSql()
	if err != nil {
		return err
	}

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return multierr.Append(err, tx.Rollback())
	}
	if err := tx.Commit(); err != nil {
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

// Flush waits until every write issued before the call is committed.
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

	sel := sq.Select(columns...).From("logs")
	if conds := buildQueryFilters(q, e.options().DefaultTag); len(conds) > 0 {
		sel = sel.Where(sq.And(conds))
	}
	if q.Descending() {
		sel = sel.OrderBy("id DESC")
	} else {
		sel = sel.OrderBy("id ASC")
	}
	// the expression filter runs in Go, so the limit is applied while scanning
	if q.Limit > 0 && !expr.Enabled() {
		sel = sel.Limit(uint64(q.Limit))
	}
	query, args, err := sel.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := e.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.LogEvent{}
	for rows.Next() {
		ev, err := e.scan(rows)
		if err != nil {
			return nil, err
		}
		if expr.Enabled() && !expr.Eval(ev) {
			continue
		}
		out = append(out, ev)
		if q.Limit > 0 && len(out) >= q.Limit {
			break
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (e *engine) scan(rows *sql.Rows) (model.LogEvent, error) {
	var (
		ev         model.LogEvent
		level      int
		msg        []byte
		tag        sql.NullString
		compressed bool
	)
	if err := rows.Scan(&ev.ID, &ev.Timestamp, &level, &msg, &tag, &compressed); err != nil {
		return ev, err
	}
	if compressed {
		raw, err := e.comp.Decompress(msg)
		if err != nil {
			return ev, fmt.Errorf("sqlitestore: event %d: %w", ev.ID, err)
		}
		msg = raw
	}
	ev.Level = model.Level(level)
	ev.Message = string(msg)
	ev.Tag = tag.String
	return ev, nil
}

// DeleteLogs removes rows matching q. An empty query removes every row.
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
	_, err = s.deleteWhere(ctx, e, "delete", sq.And(buildDeleteFilters(q)))
	return err
}

func (s *Store) deleteWhere(ctx context.Context, e *engine, reason string, where sq.Sqlizer) (int, error) {
	del := sq.Delete("logs")
	if and, ok := where.(sq.And); !ok || len(and) > 0 {
		del = del.Where(where)
	}
	query, args, err := del.ToSql()
	if err != nil {
		return 0, err
	}
	res, err := e.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.opts.Counters.EventsDeleted.Add(float64(n), EngineName, reason)
	}
	return int(n), nil
}

// DBFilePath returns the database file path.
func (s *Store) DBFilePath(ctx context.Context) (string, error) {
	e, err := s.acquire()
	if err != nil {
		return "", err
	}
	defer s.release()
	return e.path, nil
}

// CleanUp compresses stored messages and vacuums the file.
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
		n, err := e.compressRows(ctx)
		if err != nil {
			return err
		}
		s.logger.Debug("compressed stored events", log.Int("rewritten", n))
	}
	if o.Vacuum {
		if _, err := e.db.ExecContext(ctx, "VACUUM"); err != nil {
			return err
		}
	}
	return nil
}

func (e *engine) compressRows(ctx context.Context) (n int, err error) {
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			err = multierr.Append(err, tx.Rollback())
		}
	}()

	type row struct {
		id  int64
		msg []byte
	}
	var pending []row
	rows, err := tx.QueryContext(ctx, "SELECT id, message FROM logs WHERE compressed = 0")
	if err != nil {
		return 0, err
	}
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.id, &r.msg); err != nil {
			_ = rows.Close()
			return 0, err
		}
		if c := e.comp.Compress(r.msg); len(c) < len(r.msg) {
			pending = append(pending, row{id: r.id, msg: c})
		}
	}
	if err := multierr.Combine(rows.Err(), rows.Close()); err != nil {
		return 0, err
	}

	for _, r := range pending {
		query, args, err := sq.Update("logs").
			Set("message", r.msg).
			Set("compressed", true).
			Where(sq.Eq{"id": r.id}).
			ToSql()
		if err != nil {
			return 0, err
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(pending), nil
}

// Close drains pending writes and closes the database.
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
