package logbook

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"

	"github.com/rzbill/logbook/pkg/log"
)

// Logger is the leveled, tagged logging facade. It gates writes by level,
// formats messages and delegates storage to a Backend.
type Logger struct {
	backend Backend
	level   atomic.Int64

	fmtMu      sync.RWMutex
	formatter  Formatter
	defaultTag string

	cfgMu sync.Mutex

	captureMu sync.Mutex
	console   *Console
	capturing bool

	errHandler func(error)
	diag       log.Logger
}

// Option customizes a Logger at construction.
type Option func(*Logger)

// WithErrorHandler receives formatter failures and unavailable-backend errors.
func WithErrorHandler(fn func(error)) Option {
	return func(l *Logger) { l.errHandler = fn }
}

// WithConsole sets the console whose calls are captured.
func WithConsole(c *Console) Option {
	return func(l *Logger) { l.console = c }
}

// WithDiagnostics sets the logger used for the facade's own messages.
func WithDiagnostics(d log.Logger) Option {
	return func(l *Logger) { l.diag = d }
}

// New creates a Logger over backend. A nil backend yields a Logger whose
// every operation fails with ErrUnavailable.
func New(backend Backend, opts ...Option) *Logger {
	l := &Logger{
		backend:    backend,
		formatter:  DefaultFormatter,
		defaultTag: DefaultTag,
		diag:       log.NewNop(),
	}
	l.level.Store(int64(LevelDebug))
	for _, opt := range opts {
		opt(l)
	}
	if l.console == nil {
		l.console = NewConsole(WriterSink(os.Stdout))
	}
	if l.errHandler == nil {
		l.errHandler = func(err error) {
			l.diag.Warn("logbook error", log.Err(err))
		}
	}
	return l
}

// Console returns the console this logger captures.
func (l *Logger) Console() *Console { return l.console }

// SetLogLevel changes the minimum level recorded.
func (l *Logger) SetLogLevel(level Level) error {
	if !level.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidLevel, int(level))
	}
	l.level.Store(int64(level))
	return nil
}

// LogLevel returns the minimum level recorded.
func (l *Logger) LogLevel() Level { return Level(l.level.Load()) }

func (l *Logger) Trace(msg string, tag ...string) { l.Write(LevelTrace, msg, tag...) }
func (l *Logger) Debug(msg string, tag ...string) { l.Write(LevelDebug, msg, tag...) }
func (l *Logger) Info(msg string, tag ...string)  { l.Write(LevelInfo, msg, tag...) }
func (l *Logger) Warn(msg string, tag ...string)  { l.Write(LevelWarning, msg, tag...) }
func (l *Logger) Error(msg string, tag ...string) { l.Write(LevelError, msg, tag...) }

// Write records msg at level when level passes the current threshold. The
// first non-empty tag is used.
func (l *Logger) Write(level Level, msg string, tag ...string) {
	if l.backend == nil {
		l.report(ErrUnavailable)
		return
	}
	if !ShouldWrite(l.LogLevel(), level) {
		return
	}
	l.fmtMu.RLock()
	f := l.formatter
	l.fmtMu.RUnlock()

	out, ferr := format(f, level, msg)
	if ferr != nil {
		l.report(ferr)
	}
	l.backend.Write(level, out, firstTag(tag))
}

func firstTag(tags []string) string {
	for _, t := range tags {
		if t != "" {
			return t
		}
	}
	return ""
}

func (l *Logger) report(err error) {
	if err != nil {
		l.errHandler(err)
	}
}

// GetLogs returns stored events matching q.
func (l *Logger) GetLogs(ctx context.Context, q Query) ([]LogEvent, error) {
	if l.backend == nil {
		return nil, ErrUnavailable
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}
	return l.backend.GetLogs(ctx, q)
}

// DeleteLogs removes events matching q. An empty query removes everything.
func (l *Logger) DeleteLogs(ctx context.Context, q DeleteQuery) error {
	if l.backend == nil {
		return ErrUnavailable
	}
	if err := q.Validate(); err != nil {
		return err
	}
	return l.backend.DeleteLogs(ctx, q)
}

// DBFilePath returns the on-disk location of the store.
func (l *Logger) DBFilePath(ctx context.Context) (string, error) {
	if l.backend == nil {
		return "", ErrUnavailable
	}
	return l.backend.DBFilePath(ctx)
}

// CleanUp runs store maintenance. Backends without maintenance report
// errors.ErrUnsupported.
func (l *Logger) CleanUp(ctx context.Context, opts CleanUpOptions) error {
	if l.backend == nil {
		return ErrUnavailable
	}
	c, ok := l.backend.(Cleaner)
	if !ok {
		return fmt.Errorf("logbook: cleanup: %w", errors.ErrUnsupported)
	}
	return c.CleanUp(ctx, opts)
}

// Flush waits until queued writes are stored. It is a no-op for backends
// that write synchronously.
func (l *Logger) Flush(ctx context.Context) error {
	if l.backend == nil {
		return ErrUnavailable
	}
	if f, ok := l.backend.(Flusher); ok {
		return f.Flush(ctx)
	}
	return nil
}

// Close stops console capture and closes the backend when it is an io.Closer.
func (l *Logger) Close() error {
	l.DisableConsoleCapture()
	if l.backend == nil {
		return nil
	}
	if c, ok := l.backend.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// EnableConsoleCapture routes console calls into the store, then on to the
// console's sink. Enabling twice keeps a single capture.
func (l *Logger) EnableConsoleCapture() {
	l.captureMu.Lock()
	defer l.captureMu.Unlock()
	l.console.setTap(l.capture)
	l.capturing = true
}

// DisableConsoleCapture stops capturing. The console keeps whatever sink is
// installed, including one set with SetSink while capture was on.
func (l *Logger) DisableConsoleCapture() {
	l.captureMu.Lock()
	defer l.captureMu.Unlock()
	l.disableLocked()
}

// ConsoleCaptureEnabled reports whether console calls are being captured.
func (l *Logger) ConsoleCaptureEnabled() bool {
	l.captureMu.Lock()
	defer l.captureMu.Unlock()
	return l.capturing
}

func (l *Logger) disableLocked() {
	if !l.capturing {
		return
	}
	l.console.setTap(nil)
	l.capturing = false
}

func (l *Logger) capture(m Method, args Args) {
	tag := args.tag()
	if tag == "" {
		l.fmtMu.RLock()
		tag = l.defaultTag
		l.fmtMu.RUnlock()
	}
	l.Write(m.Level(), Text(args), tag)
}
